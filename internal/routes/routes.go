package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/payvo/payvo/internal/config"
	"github.com/payvo/payvo/internal/identity"
	"github.com/payvo/payvo/internal/middleware"
	"github.com/payvo/payvo/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Identity *identity.Service
	Sessions *session.Manager
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Cfg.StoreBackend == config.StorePostgres && d.DB == nil {
		return fmt.Errorf("database is required when STORE_BACKEND=%s", d.Cfg.StoreBackend)
	}
	if d.Identity == nil || d.Sessions == nil {
		return fmt.Errorf("identity service and session manager are required")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	identityHandler := identity.NewHandler(d.Identity, d.Logger)
	identityHandler.OnDelete = d.Sessions.CloseFor
	sessionHandler := session.NewHandler(d.Sessions, d.Identity)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID := middleware.RequestIDFrom(c)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identityHandler)
	RegisterSessionRoutes(api, sessionHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttemptsPerMin))

	return nil
}
