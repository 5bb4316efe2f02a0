package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payvo/payvo/internal/config"
	"github.com/payvo/payvo/internal/ledger"
)

// Open returns the account store selected by cfg.StoreBackend. The postgres
// backend needs db and creates its tables if missing.
func Open(ctx context.Context, cfg config.Config, db *pgxpool.Pool) (ledger.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return NewMemory(ledger.Snapshot{}), nil
	case config.StoreFile, "":
		return NewFile(cfg.DataDir)
	case config.StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres store requires a database pool")
		}
		pg := NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
