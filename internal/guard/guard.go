// Package guard parks large money movements until the speaker confirms them.
package guard

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/money"
)

// ErrAwaitingConfirmation is returned by Check while a transaction is parked.
var ErrAwaitingConfirmation = errors.New("a transaction is awaiting confirmation")

// DefaultThresholdPercent is the share of the balance above which a movement
// needs confirmation.
var DefaultThresholdPercent = decimal.NewFromInt(15)

// Kind is the movement a pending transaction will replay.
type Kind string

const (
	KindSend            Kind = "send"
	KindSplit           Kind = "split"
	KindRequest         Kind = "request"
	KindRequestFromUser Kind = "requestFromUser"
)

// PendingTransaction is the staged movement. It is never persisted.
type PendingTransaction struct {
	Kind                Kind            `json:"kind"`
	ContactName         string          `json:"contact_name"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	PercentageOfBalance decimal.Decimal `json:"percentage_of_balance"`
	StagedAt            time.Time       `json:"staged_at"`
}

// AlertMessage is read back to the speaker when a movement is parked.
func (p PendingTransaction) AlertMessage() string {
	return fmt.Sprintf("Warning: This transaction is %s%% of your balance. Do you want to proceed?", p.PercentageOfBalance.StringFixed(1))
}

// Guard holds at most one pending transaction. It is not safe for concurrent
// use; the owning session serializes access.
type Guard struct {
	threshold decimal.Decimal
	pending   *PendingTransaction
	now       func() time.Time
}

// New returns a guard that intercepts amounts above thresholdPercent of the
// balance.
func New(thresholdPercent decimal.Decimal) *Guard {
	return &Guard{threshold: thresholdPercent, now: time.Now}
}

// Threshold reports the configured percentage.
func (g *Guard) Threshold() decimal.Decimal { return g.threshold }

// Check compares amount against balance. When the share exceeds the
// threshold the movement is parked and returned with intercepted set. A
// balance of zero or less always intercepts and reports 100%.
func (g *Guard) Check(kind Kind, contactName string, amount, balance decimal.Decimal, description string) (PendingTransaction, bool, error) {
	if g.pending != nil {
		return PendingTransaction{}, false, ErrAwaitingConfirmation
	}

	pct, ok := money.Percent(amount, balance)
	if !ok {
		pct = decimal.NewFromInt(100)
	} else if !pct.GreaterThan(g.threshold) {
		return PendingTransaction{}, false, nil
	}

	p := PendingTransaction{
		Kind:                kind,
		ContactName:         contactName,
		Amount:              amount,
		Description:         description,
		PercentageOfBalance: pct.Round(2),
		StagedAt:            g.now(),
	}
	g.pending = &p
	return p, true, nil
}

// Pending returns the parked transaction, if any.
func (g *Guard) Pending() (PendingTransaction, bool) {
	if g.pending == nil {
		return PendingTransaction{}, false
	}
	return *g.pending, true
}

// Take removes and returns the parked transaction for replay.
func (g *Guard) Take() (PendingTransaction, bool) {
	p, ok := g.Pending()
	g.pending = nil
	return p, ok
}

// Clear discards the parked transaction and reports whether there was one.
func (g *Guard) Clear() bool {
	had := g.pending != nil
	g.pending = nil
	return had
}
