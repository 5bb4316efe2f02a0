package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    email       TEXT PRIMARY KEY,
    document    JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pending_requests (
    id          UUID PRIMARY KEY,
    from_email  TEXT NOT NULL,
    from_name   TEXT NOT NULL,
    to_email    TEXT NOT NULL,
    to_name     TEXT NOT NULL,
    amount      NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
    description TEXT NOT NULL,
    status      TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS pending_requests_to_email_idx ON pending_requests (to_email, status);
`

// Postgres stores each account as one JSONB document keyed by its lower-cased
// email, and pending requests as plain rows.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the tables when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) (ledger.Snapshot, error) {
	var snap ledger.Snapshot

	rows, err := p.db.Query(ctx, `SELECT document FROM accounts ORDER BY created_at, email`)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load accounts: %w", err)
	}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			rows.Close()
			return ledger.Snapshot{}, fmt.Errorf("scan account: %w", err)
		}
		var acct ledger.Account
		if err := json.Unmarshal(doc, &acct); err != nil {
			rows.Close()
			return ledger.Snapshot{}, fmt.Errorf("decode account: %w", err)
		}
		snap.Accounts = append(snap.Accounts, acct)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load accounts: %w", err)
	}

	rows, err = p.db.Query(ctx, `SELECT id, from_email, from_name, to_email, to_name, amount::text, description, status, created_at
        FROM pending_requests ORDER BY created_at, id`)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load requests: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			req       ledger.PendingRequest
			amount    string
			status    string
			createdAt time.Time
		)
		if err := rows.Scan(&req.ID, &req.FromEmail, &req.FromName, &req.ToEmail, &req.ToName, &amount, &req.Description, &status, &createdAt); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("scan request: %w", err)
		}
		if req.Amount, err = decimal.NewFromString(amount); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("decode request amount: %w", err)
		}
		req.Status = ledger.RequestStatus(status)
		req.CreatedAt = createdAt.UTC()
		snap.Requests = append(snap.Requests, req)
	}
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load requests: %w", err)
	}
	return snap, nil
}

func (p *Postgres) SaveAccount(ctx context.Context, account ledger.Account) error {
	return upsertAccount(ctx, p.db, account)
}

// SaveAccounts upserts every account and deletes the rows it does not name,
// in one transaction.
func (p *Postgres) SaveAccounts(ctx context.Context, accounts []ledger.Account) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	keys := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		if err := upsertAccount(ctx, tx, acct); err != nil {
			return err
		}
		keys = append(keys, strings.ToLower(acct.Email))
	}
	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE NOT (email = ANY($1))`, keys); err != nil {
		return fmt.Errorf("prune accounts: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) SavePendingRequests(ctx context.Context, requests []ledger.PendingRequest) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ids := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		_, err := tx.Exec(ctx, `INSERT INTO pending_requests (id, from_email, from_name, to_email, to_name, amount, description, status, created_at)
            VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, $9)
            ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
			req.ID, req.FromEmail, req.FromName, req.ToEmail, req.ToName, req.Amount.StringFixed(2), req.Description, string(req.Status), req.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("save request %s: %w", req.ID, err)
		}
		ids = append(ids, req.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pending_requests WHERE NOT (id = ANY($1))`, ids); err != nil {
		return fmt.Errorf("prune requests: %w", err)
	}
	return tx.Commit(ctx)
}

// execer is satisfied by both the pool and an open transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertAccount(ctx context.Context, db execer, acct ledger.Account) error {
	doc, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", acct.Email, err)
	}
	_, err = db.Exec(ctx, `INSERT INTO accounts (email, document, created_at, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (email) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		strings.ToLower(acct.Email), doc, acct.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save account %s: %w", acct.Email, err)
	}
	return nil
}
