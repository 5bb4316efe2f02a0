package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/payvo/payvo/internal/config"
	"github.com/payvo/payvo/internal/identity"
	"github.com/payvo/payvo/internal/ledger"
	"github.com/payvo/payvo/internal/narrator"
	"github.com/payvo/payvo/internal/routes"
	"github.com/payvo/payvo/internal/session"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	sessions *session.Manager
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, dir *ledger.Directory, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	ids := identity.NewService(dir, identity.Options{
		SeedSampleContacts: cfg.SeedSampleContacts,
		Logger:             logger,
	})
	sessions := session.NewManager(dir, session.Options{
		ThresholdPercent:  cfg.GuardThresholdPercent,
		DefaultSendAmount: cfg.DefaultSendAmount,
		Narrator:          narrator.NewLogger(logger),
		Logger:            logger,
	})

	if err := routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Identity: ids,
		Sessions: sessions,
	}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, sessions: sessions}, nil
}

// App exposes the fiber application for in-process tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests, then cancels every open session so no
// parked transaction outlives the process.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.sessions.CloseAll(ctx)
	return err
}
