package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeedBalance is a test helper that overwrites an account balance without
// recording a transaction or touching the store.
func SeedBalance(d *Directory, email string, amount decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if acct := d.byEmail(email); acct != nil {
		acct.Balance = amount
		d.reconcileAll()
	}
}

// SetClock is a test helper that replaces the directory clock.
func SetClock(d *Directory, now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

func (d *Directory) reconcileAll() {
	for _, acct := range d.accounts {
		d.reconcile(acct)
	}
}
