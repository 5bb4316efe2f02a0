// Package session runs the voice command pipeline for one signed-in account:
// interpret the utterance, let the guard park large movements, apply the rest
// to the directory and read the outcome back.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/guard"
	"github.com/payvo/payvo/internal/interpreter"
	"github.com/payvo/payvo/internal/ledger"
	"github.com/payvo/payvo/internal/metrics"
	"github.com/payvo/payvo/internal/money"
	"github.com/payvo/payvo/internal/narrator"
)

// Status classifies a Result.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusGuidance  Status = "guidance"
	StatusPending   Status = "pending"
	StatusInfo      Status = "info"
	StatusCancelled Status = "cancelled"
	StatusBusy      Status = "busy"
)

const (
	msgPending       = "Transaction pending confirmation..."
	msgConfirmed     = "Transaction confirmed and completed successfully."
	msgConfirmFailed = "Transaction failed. Please check the contact name and balances."
	msgCancelled     = "Transaction cancelled."
	msgNothingParked = "There is no transaction waiting for confirmation."
	msgBusy          = "A transaction is waiting for confirmation. Say confirm to proceed or cancel to drop it."
	msgNothingHeard  = "I didn't catch that. Please try again."
	msgClosed        = "This session has ended. Please sign in again."
	msgHelp          = "Available commands: check balance, split amount with contact, send amount to contact, request amount from contact (or database user), show transactions, show contacts, help"
	msgUnknown       = "Command not recognized. Try: check balance, split with contact, send to contact, or request from contact"
)

var (
	confirmWords = map[string]bool{"confirm": true, "yes": true, "proceed": true}
	cancelWords  = map[string]bool{"cancel": true, "no": true, "stop": true}
)

// Result is what one command produced. ShouldSpeak tells the caller whether
// Message is meant to be read aloud.
type Result struct {
	Status      Status                    `json:"status"`
	Message     string                    `json:"message"`
	ShouldSpeak bool                      `json:"should_speak"`
	Intent      interpreter.Kind          `json:"intent,omitempty"`
	Alert       string                    `json:"alert,omitempty"`
	Pending     *guard.PendingTransaction `json:"pending,omitempty"`
}

// Options tune a session.
type Options struct {
	ThresholdPercent  decimal.Decimal
	DefaultSendAmount decimal.Decimal
	Narrator          narrator.Narrator
	Logger            *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ThresholdPercent.IsZero() {
		o.ThresholdPercent = guard.DefaultThresholdPercent
	}
	if o.DefaultSendAmount.IsZero() {
		o.DefaultSendAmount = interpreter.DefaultSendAmount
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Session is one signed-in speaker. Its commands run one at a time.
type Session struct {
	ID    uuid.UUID
	email string

	mu       sync.Mutex
	dir      *ledger.Directory
	interp   *interpreter.Interpreter
	guard    *guard.Guard
	narrator narrator.Narrator
	logger   *slog.Logger
	closed   bool
}

// New opens a session acting as email.
func New(dir *ledger.Directory, email string, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		ID:       uuid.New(),
		email:    email,
		dir:      dir,
		interp:   interpreter.New(opts.DefaultSendAmount),
		guard:    guard.New(opts.ThresholdPercent),
		narrator: opts.Narrator,
		logger:   opts.Logger.With("session", "voice", "email", email),
	}
}

// Email is the acting account.
func (s *Session) Email() string { return s.email }

// Pending returns the transaction awaiting confirmation, if any.
func (s *Session) Pending() (guard.PendingTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.Pending()
}

// Process handles one utterance. While a transaction is parked only confirm
// and cancel words are acted on.
func (s *Session) Process(ctx context.Context, utterance string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{Status: StatusFailure, Message: msgClosed}
	}
	text := strings.TrimSpace(utterance)
	if text == "" {
		return Result{Status: StatusGuidance, Message: msgNothingHeard}
	}

	if _, parked := s.guard.Pending(); parked {
		switch decision(text) {
		case "confirm":
			return s.finish(ctx, s.confirm(ctx))
		case "cancel":
			return s.finish(ctx, s.cancel())
		}
		return s.finish(ctx, Result{Status: StatusBusy, Message: msgBusy, ShouldSpeak: true})
	}

	intent := s.interp.Interpret(text)
	res := s.dispatch(ctx, intent)
	res.Intent = intent.Kind
	metrics.CommandsTotal.WithLabelValues(string(intent.Kind), string(res.Status)).Inc()
	s.logger.Info("command processed", "intent", intent.Kind, "status", res.Status)
	return s.finish(ctx, res)
}

// Confirm replays the parked transaction.
func (s *Session) Confirm(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finish(ctx, s.confirm(ctx))
}

// Cancel drops the parked transaction.
func (s *Session) Cancel(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finish(ctx, s.cancel())
}

// Close ends the session. A parked transaction is cancelled.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, parked := s.guard.Pending(); parked {
		s.cancel()
	}
	s.closed = true
	s.logger.Info("session closed")
}

func (s *Session) dispatch(ctx context.Context, in interpreter.Intent) Result {
	if in.Guidance != "" {
		return Result{Status: StatusGuidance, Message: in.Guidance, ShouldSpeak: true}
	}

	switch in.Kind {
	case interpreter.KindBalance:
		balance, err := s.dir.Balance(s.email)
		if err != nil {
			return s.failed(in.Kind, err, "I couldn't find your account.")
		}
		return info("Your current balance is " + money.Format(balance))

	case interpreter.KindSplit:
		if in.Multi {
			return s.splitMany(ctx, in)
		}
		return s.guarded(ctx, guard.PendingTransaction{Kind: guard.KindSplit, ContactName: in.Contact, Amount: in.Amount, Description: "Voice Split"},
			fmt.Sprintf("Successfully split %s with %s", money.Format(in.Amount), in.Contact),
			fmt.Sprintf("Failed to split with %s. Please check the contact name and your balance.", in.Contact))

	case interpreter.KindRequest:
		return s.request(ctx, in)

	case interpreter.KindSend:
		if in.DefaultAmount {
			_, err := s.dir.SendToContact(ctx, s.email, in.Contact, in.Amount, "Voice Send (Default Amount)")
			if err != nil {
				return s.failed(in.Kind, err, fmt.Sprintf("Failed to send to %s. Please check the contact name and your balance.", in.Contact))
			}
			return success(fmt.Sprintf("Successfully sent %s to %s (default amount)", money.Format(in.Amount), in.Contact))
		}
		return s.guarded(ctx, guard.PendingTransaction{Kind: guard.KindSend, ContactName: in.Contact, Amount: in.Amount, Description: "Voice Send"},
			fmt.Sprintf("Successfully sent %s to %s", money.Format(in.Amount), in.Contact),
			fmt.Sprintf("Failed to send to %s. Please check the contact name and your balance.", in.Contact))

	case interpreter.KindHistory:
		history, err := s.dir.History(s.email)
		if err != nil {
			return s.failed(in.Kind, err, "I couldn't find your account.")
		}
		if len(history) == 0 {
			return info("No transactions found.")
		}
		return info(fmt.Sprintf("You have %d transactions. Check the transaction history page for details.", len(history)))

	case interpreter.KindContacts:
		contacts, err := s.dir.Contacts(ctx, s.email)
		if err != nil {
			return s.failed(in.Kind, err, "I couldn't find your account.")
		}
		if len(contacts) == 0 {
			return info("No contacts found. Add contacts in the contacts page.")
		}
		return info(fmt.Sprintf("You have %d contacts. Check the contacts page for details.", len(contacts)))

	case interpreter.KindHelp:
		return info(msgHelp)
	}
	return Result{Status: StatusGuidance, Message: msgUnknown, ShouldSpeak: true}
}

func (s *Session) splitMany(ctx context.Context, in interpreter.Intent) Result {
	joined := strings.Join(in.Contacts, ", ")
	rcpt, err := s.dir.SplitBetweenContacts(ctx, s.email, in.Contacts, in.Amount, "Voice Split Between")
	if errors.Is(err, ledger.ErrNoContacts) {
		return s.failed(in.Kind, err, "Failed to split. Please name at least one contact besides yourself.")
	}
	if err != nil {
		return s.failed(in.Kind, err, fmt.Sprintf("Failed to split between %s. Please check the contact names and their balances.", joined))
	}
	return success(fmt.Sprintf("Successfully split %s between %s and you. Each person pays %s",
		money.Format(in.Amount), joined, money.Format(rcpt.PerPerson)))
}

// request sends a cross-account money request when the name belongs to a
// registered account, otherwise it pulls from a contact.
func (s *Session) request(ctx context.Context, in interpreter.Intent) Result {
	if acct, ok := s.dir.FindByName(in.Contact); ok {
		if strings.EqualFold(acct.Email, s.email) {
			return s.failed(in.Kind, ledger.ErrSelfTransfer, "You cannot request money from yourself.")
		}
		return s.guarded(ctx, guard.PendingTransaction{Kind: guard.KindRequestFromUser, ContactName: acct.Name, Amount: in.Amount, Description: "Voice Request"},
			fmt.Sprintf("Money request sent to %s. They will receive a notification to accept or decline your request.", acct.Name),
			fmt.Sprintf("Failed to send money request to %s. Please try again.", acct.Name))
	}
	return s.guarded(ctx, guard.PendingTransaction{Kind: guard.KindRequest, ContactName: in.Contact, Amount: in.Amount, Description: "Voice Request"},
		fmt.Sprintf("Successfully requested %s from %s", money.Format(in.Amount), in.Contact),
		fmt.Sprintf("Failed to request from %s. Please check the contact name and their balance.", in.Contact))
}

// guarded parks m when it is large relative to the current balance,
// otherwise applies it straight away.
func (s *Session) guarded(ctx context.Context, m guard.PendingTransaction, ok, failed string) Result {
	balance, err := s.dir.Balance(s.email)
	if err != nil {
		return s.failed(interpreter.Kind(m.Kind), err, failed)
	}
	p, intercepted, err := s.guard.Check(m.Kind, m.ContactName, m.Amount, balance, m.Description)
	if err != nil {
		return Result{Status: StatusBusy, Message: msgBusy, ShouldSpeak: true}
	}
	if intercepted {
		metrics.GuardDecisions.WithLabelValues(metrics.DecisionIntercepted).Inc()
		s.logger.Info("transaction parked", "kind", p.Kind, "contact", p.ContactName, "amount", p.Amount.StringFixed(2), "percent", p.PercentageOfBalance.StringFixed(1))
		return Result{Status: StatusPending, Message: msgPending, Alert: p.AlertMessage(), Pending: &p}
	}
	if err := s.execute(ctx, m); err != nil {
		return s.failed(interpreter.Kind(m.Kind), err, failed)
	}
	return success(ok)
}

// execute applies a movement. The guard's replay and the unguarded path both
// go through here.
func (s *Session) execute(ctx context.Context, m guard.PendingTransaction) error {
	var err error
	switch m.Kind {
	case guard.KindSend:
		_, err = s.dir.SendToContact(ctx, s.email, m.ContactName, m.Amount, m.Description)
	case guard.KindSplit:
		_, err = s.dir.SplitWithContact(ctx, s.email, m.ContactName, m.Amount, m.Description)
	case guard.KindRequest:
		_, err = s.dir.RequestFromContact(ctx, s.email, m.ContactName, m.Amount, m.Description)
	case guard.KindRequestFromUser:
		target, ok := s.dir.FindByName(m.ContactName)
		if !ok {
			return fmt.Errorf("request from %s: %w", m.ContactName, ledger.ErrAccountNotFound)
		}
		_, err = s.dir.SendMoneyRequest(ctx, s.email, target.Email, m.Amount, m.Description)
	default:
		err = fmt.Errorf("unknown transaction kind %q", m.Kind)
	}
	return err
}

func (s *Session) confirm(ctx context.Context) Result {
	p, ok := s.guard.Take()
	if !ok {
		return info(msgNothingParked)
	}
	metrics.GuardDecisions.WithLabelValues(metrics.DecisionConfirmed).Inc()
	if err := s.execute(ctx, p); err != nil {
		s.logger.Warn("confirmed transaction failed", "kind", p.Kind, "contact", p.ContactName, "error", err)
		return Result{Status: StatusFailure, Message: msgConfirmFailed, ShouldSpeak: true}
	}
	return success(msgConfirmed)
}

func (s *Session) cancel() Result {
	if !s.guard.Clear() {
		return info(msgNothingParked)
	}
	metrics.GuardDecisions.WithLabelValues(metrics.DecisionCancelled).Inc()
	return Result{Status: StatusCancelled, Message: msgCancelled, ShouldSpeak: true}
}

func (s *Session) failed(kind interpreter.Kind, err error, message string) Result {
	s.logger.Warn("command failed", "intent", kind, "error", err)
	return Result{Status: StatusFailure, Message: message, ShouldSpeak: true}
}

// finish reads the outcome to the narrator. A parked transaction reads its
// alert instead of the pending notice.
func (s *Session) finish(ctx context.Context, res Result) Result {
	if s.narrator == nil {
		return res
	}
	line := ""
	switch {
	case res.Alert != "":
		line = res.Alert
	case res.ShouldSpeak:
		line = res.Message
	}
	if line != "" {
		if err := s.narrator.Narrate(ctx, line); err != nil {
			s.logger.Warn("narration failed", "error", err)
		}
	}
	return res
}

// decision maps a reply to a parked transaction onto confirm or cancel.
// Cancel words win when both appear.
func decision(text string) string {
	verdict := ""
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		if cancelWords[w] {
			return "cancel"
		}
		if confirmWords[w] {
			verdict = "confirm"
		}
	}
	return verdict
}

func success(message string) Result {
	return Result{Status: StatusSuccess, Message: message, ShouldSpeak: true}
}

func info(message string) Result {
	return Result{Status: StatusInfo, Message: message, ShouldSpeak: true}
}
