package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/voiceprint"
)

var (
	// ErrInsufficientFunds occurs when a party lacks the balance to cover its
	// side of a movement. Nothing is applied when it is returned.
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrContactNotFound = errors.New("contact not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidAmount   = errors.New("amount must be positive")

	ErrRequestNotFound = errors.New("money request not found")
	// ErrRequestResolved is returned when a request already left the pending state.
	ErrRequestResolved = errors.New("money request already resolved")
	ErrNotAddressee    = errors.New("money request is addressed to another account")

	// ErrSelfTransfer rejects movements whose counterparty is the acting account.
	ErrSelfTransfer = errors.New("counterparty is the acting account")
	ErrNoContacts   = errors.New("no contacts given")

	ErrAccountExists      = errors.New("account already exists")
	ErrContactExists      = errors.New("contact already exists")
	ErrVerificationFailed = errors.New("account verification failed")
	// ErrLinkNotMutual stops a split from debiting a backing account that does
	// not list the acting account among its own contacts.
	ErrLinkNotMutual = errors.New("linked account does not list you as a contact")
)

// TransactionType classifies a ledger event.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeSend       TransactionType = "send"
	TypeRequest    TransactionType = "request"
	TypeSplit      TransactionType = "split"
	TypeTransfer   TransactionType = "transfer"
)

// RequestStatus tracks a cross-account money request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// Transaction is an immutable record of one balance change. Outgoing
// movements carry a negative Amount, except withdrawals which are recorded
// as the positive amount taken out.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
	Description   string          `json:"description"`
	RecipientName string          `json:"recipient_name,omitempty"`
	SenderName    string          `json:"sender_name,omitempty"`
}

// Contact is a counterparty in an account's address book. When Email names a
// registered account, Balance mirrors that account's balance.
type Contact struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	PhoneNumber string          `json:"phone_number,omitempty"`
	Email       string          `json:"email,omitempty"`
}

// Account is one registered user and its ledger state.
type Account struct {
	Email          string             `json:"email"`
	Name           string             `json:"name"`
	PhoneNumber    string             `json:"phone_number"`
	PassphraseHash string             `json:"passphrase_hash"`
	VoiceSample    *voiceprint.Sample `json:"voice_sample,omitempty"`
	Balance        decimal.Decimal    `json:"balance"`
	Transactions   []Transaction      `json:"transactions"`
	Contacts       []Contact          `json:"contacts"`
	UniqueTag      string             `json:"unique_tag"`
	CreatedAt      time.Time          `json:"created_at"`
}

// PendingRequest is a money request from one account to another awaiting the
// addressee's answer.
type PendingRequest struct {
	ID          uuid.UUID       `json:"id"`
	FromEmail   string          `json:"from_email"`
	FromName    string          `json:"from_name"`
	ToEmail     string          `json:"to_email"`
	ToName      string          `json:"to_name"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	Status      RequestStatus   `json:"status"`
}

// Snapshot is everything a Store holds.
type Snapshot struct {
	Accounts []Account
	Requests []PendingRequest
}

// Store persists directory state. Implementations must be safe for
// sequential use from the directory's critical section.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	// SaveAccounts replaces the full account set, dropping accounts absent from it.
	SaveAccounts(ctx context.Context, accounts []Account) error
	SaveAccount(ctx context.Context, account Account) error
	SavePendingRequests(ctx context.Context, requests []PendingRequest) error
}

// Clone returns a deep copy that shares no slices with a.
func (a Account) Clone() Account {
	out := a
	out.Transactions = append([]Transaction(nil), a.Transactions...)
	out.Contacts = append([]Contact(nil), a.Contacts...)
	if a.VoiceSample != nil {
		s := *a.VoiceSample
		out.VoiceSample = &s
	}
	return out
}
