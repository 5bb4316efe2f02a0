package identity

import (
	"context"

	"github.com/payvo/payvo/internal/ledger"
)

// Accounts is the slice of the account directory identity needs.
// *ledger.Directory satisfies it.
type Accounts interface {
	Create(ctx context.Context, in ledger.NewAccount) (ledger.Account, error)
	Get(email string) (ledger.Account, error)
	Rename(ctx context.Context, email, name string) (ledger.Account, error)
	EnsureFunded(ctx context.Context, email string) (ledger.Account, bool, error)
	VerifiedDelete(ctx context.Context, email, phone, tag string) error
	Search(actingEmail, query string) []ledger.Account
}

var _ Accounts = (*ledger.Directory)(nil)
