package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/metrics"
	"github.com/payvo/payvo/internal/money"
	"github.com/payvo/payvo/internal/voiceprint"
)

var (
	openingMin = decimal.NewFromInt(1000)
	openingMax = decimal.NewFromInt(1500)
)

const tagAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// nicknames pairs short and long forms that resolve to each other.
var nicknames = [][2]string{
	{"mo", "moe"},
	{"john", "jon"},
	{"mike", "michael"},
	{"bob", "robert"},
	{"alex", "alexander"},
	{"chris", "christopher"},
}

// Directory owns every account and pending request. A single mutex covers
// each read-check-write so two sessions can never interleave on the same
// balance, and store writes happen inside it so snapshots land in order.
type Directory struct {
	mu       sync.Mutex
	accounts []*Account
	requests []*PendingRequest
	store    Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewDirectory returns an empty directory writing through to store.
func NewDirectory(store Store, logger *slog.Logger) *Directory {
	return &Directory{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Open loads the directory from store.
func Open(ctx context.Context, store Store, logger *slog.Logger) (*Directory, error) {
	d := NewDirectory(store, logger)
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	for i := range snap.Accounts {
		acct := snap.Accounts[i].Clone()
		d.accounts = append(d.accounts, &acct)
	}
	for i := range snap.Requests {
		req := snap.Requests[i]
		d.requests = append(d.requests, &req)
	}
	logger.Info("directory loaded", "accounts", len(d.accounts), "requests", len(d.requests))
	return d, nil
}

// NewAccount carries the registration data for Create.
type NewAccount struct {
	Email          string
	Name           string
	PhoneNumber    string
	PassphraseHash string
	VoiceSample    *voiceprint.Sample
	Contacts       []Contact
}

// Create registers an account with a random opening balance and tag.
func (d *Directory) Create(ctx context.Context, in NewAccount) (Account, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return Account{}, fmt.Errorf("create account: email required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.byEmail(email) != nil {
		return Account{}, fmt.Errorf("create %s: %w", email, ErrAccountExists)
	}

	acct := &Account{
		Email:          email,
		Name:           strings.TrimSpace(in.Name),
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
		PassphraseHash: in.PassphraseHash,
		VoiceSample:    in.VoiceSample,
		Balance:        money.RandomBetween(openingMin, openingMax),
		UniqueTag:      newTag(),
		CreatedAt:      d.now(),
	}
	for _, c := range in.Contacts {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		acct.Contacts = append(acct.Contacts, c)
	}
	d.reconcile(acct)
	d.accounts = append(d.accounts, acct)
	d.saveAccount(ctx, acct)

	d.logger.Info("account created", "email", acct.Email, "balance", acct.Balance.StringFixed(2))
	return acct.Clone(), nil
}

// Get returns the account registered under email.
func (d *Directory) Get(email string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := d.byEmail(email)
	if acct == nil {
		return Account{}, fmt.Errorf("get %s: %w", email, ErrAccountNotFound)
	}
	return acct.Clone(), nil
}

// FindByEmail is a case-insensitive exact lookup.
func (d *Directory) FindByEmail(email string) (Account, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if acct := d.byEmail(email); acct != nil {
		return acct.Clone(), true
	}
	return Account{}, false
}

// FindByName is a case-insensitive exact lookup on the display name. The
// first account in directory order wins.
func (d *Directory) FindByName(name string) (Account, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if acct := d.byName(name); acct != nil {
		return acct.Clone(), true
	}
	return Account{}, false
}

// Search matches query against names and emails of every account other than
// the acting one.
func (d *Directory) Search(actingEmail, query string) []Account {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Account
	for _, acct := range d.accounts {
		if strings.EqualFold(acct.Email, actingEmail) {
			continue
		}
		if strings.Contains(strings.ToLower(acct.Name), q) || strings.Contains(strings.ToLower(acct.Email), q) {
			out = append(out, acct.Clone())
		}
	}
	return out
}

// VerifiedDelete removes an account only when email, phone and tag all match
// the same record.
func (d *Directory) VerifiedDelete(ctx context.Context, email, phone, tag string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, acct := range d.accounts {
		if strings.EqualFold(acct.Email, strings.TrimSpace(email)) && acct.PhoneNumber == phone && acct.UniqueTag == tag {
			d.accounts = append(d.accounts[:i], d.accounts[i+1:]...)
			d.saveAll(ctx)
			d.logger.Info("account deleted", "email", acct.Email)
			return nil
		}
	}
	return fmt.Errorf("delete %s: %w", email, ErrVerificationFailed)
}

// Balance returns the acting account's balance.
func (d *Directory) Balance(email string) (decimal.Decimal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := d.byEmail(email)
	if acct == nil {
		return decimal.Zero, fmt.Errorf("balance %s: %w", email, ErrAccountNotFound)
	}
	return acct.Balance, nil
}

// History returns the acting account's transactions, oldest first.
func (d *Directory) History(email string) ([]Transaction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := d.byEmail(email)
	if acct == nil {
		return nil, fmt.Errorf("history %s: %w", email, ErrAccountNotFound)
	}
	return append([]Transaction(nil), acct.Transactions...), nil
}

// Rename changes the display name of an account.
func (d *Directory) Rename(ctx context.Context, email, name string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := d.byEmail(email)
	if acct == nil {
		return Account{}, fmt.Errorf("rename %s: %w", email, ErrAccountNotFound)
	}
	acct.Name = strings.TrimSpace(name)
	d.saveAccount(ctx, acct)
	return acct.Clone(), nil
}

// EnsureFunded gives an empty or overdrawn account a fresh opening balance.
// It reports whether a top-up happened.
func (d *Directory) EnsureFunded(ctx context.Context, email string) (Account, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := d.byEmail(email)
	if acct == nil {
		return Account{}, false, fmt.Errorf("fund %s: %w", email, ErrAccountNotFound)
	}
	if acct.Balance.IsPositive() {
		return acct.Clone(), false, nil
	}
	acct.Balance = money.RandomBetween(openingMin, openingMax)
	d.saveAccount(ctx, acct)
	d.logger.Info("account topped up", "email", acct.Email, "balance", acct.Balance.StringFixed(2))
	return acct.Clone(), true, nil
}

func (d *Directory) byEmail(email string) *Account {
	email = strings.TrimSpace(email)
	for _, acct := range d.accounts {
		if strings.EqualFold(acct.Email, email) {
			return acct
		}
	}
	return nil
}

func (d *Directory) byName(name string) *Account {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, acct := range d.accounts {
		if strings.EqualFold(acct.Name, name) {
			return acct
		}
	}
	return nil
}

func (d *Directory) mustAccount(op, email string) (*Account, error) {
	acct := d.byEmail(email)
	if acct == nil {
		return nil, fmt.Errorf("%s: %s: %w", op, email, ErrAccountNotFound)
	}
	return acct, nil
}

// backing returns the registered account behind a contact, if any.
func (d *Directory) backing(c *Contact) *Account {
	if c.Email == "" {
		return nil
	}
	return d.byEmail(c.Email)
}

// reconcile copies backing balances onto acct's contacts and reports whether
// anything changed.
func (d *Directory) reconcile(acct *Account) bool {
	changed := false
	for i := range acct.Contacts {
		c := &acct.Contacts[i]
		if b := d.backing(c); b != nil && !c.Balance.Equal(b.Balance) {
			c.Balance = b.Balance
			changed = true
		}
	}
	return changed
}

// resolveContact finds a contact by exact name first, then by substring in
// either direction or a nickname pair, in insertion order.
func resolveContact(acct *Account, name string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return -1, false
	}
	for i, c := range acct.Contacts {
		if strings.ToLower(c.Name) == want {
			return i, true
		}
	}
	for i, c := range acct.Contacts {
		have := strings.ToLower(c.Name)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return i, true
		}
		for _, pair := range nicknames {
			if (have == pair[0] && want == pair[1]) || (have == pair[1] && want == pair[0]) {
				return i, true
			}
		}
	}
	return -1, false
}

func (d *Directory) saveAccount(ctx context.Context, acct *Account) {
	if d.store == nil {
		return
	}
	if err := d.store.SaveAccount(ctx, acct.Clone()); err != nil {
		d.storeFailed("save_account", err, "email", acct.Email)
	}
}

func (d *Directory) saveAll(ctx context.Context) {
	if d.store == nil {
		return
	}
	out := make([]Account, 0, len(d.accounts))
	for _, acct := range d.accounts {
		out = append(out, acct.Clone())
	}
	if err := d.store.SaveAccounts(ctx, out); err != nil {
		d.storeFailed("save_accounts", err)
	}
}

func (d *Directory) saveRequests(ctx context.Context) {
	if d.store == nil {
		return
	}
	out := make([]PendingRequest, 0, len(d.requests))
	for _, req := range d.requests {
		out = append(out, *req)
	}
	if err := d.store.SavePendingRequests(ctx, out); err != nil {
		d.storeFailed("save_pending_requests", err)
	}
}

func (d *Directory) storeFailed(op string, err error, attrs ...any) {
	metrics.StoreFailures.WithLabelValues(op).Inc()
	d.logger.Error("store write failed", append([]any{"operation", op, "error", err}, attrs...)...)
}

func newTag() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = tagAlphabet[rand.Intn(len(tagAlphabet))]
	}
	return string(b)
}
