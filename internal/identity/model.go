package identity

import (
	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/ledger"
	"github.com/payvo/payvo/internal/money"
	"github.com/payvo/payvo/internal/voiceprint"
)

// Registration is the sign-up form.
type Registration struct {
	Email       string
	Name        string
	PhoneNumber string
	Passphrase  string
	VoiceSample *voiceprint.Sample
}

var (
	sampleContactMin = decimal.NewFromInt(1000)
	sampleContactMax = decimal.NewFromInt(15000)
)

var sampleContactBook = []struct{ name, phone, email string }{
	{"Alice Johnson", "(555) 123-4567", "alice.johnson@email.com"},
	{"Bob Smith", "(555) 234-5678", "bob.smith@email.com"},
	{"Carol Davis", "(555) 345-6789", "carol.davis@email.com"},
	{"David Wilson", "(555) 456-7890", "david.wilson@email.com"},
	{"Emma Brown", "(555) 567-8901", "emma.brown@email.com"},
	{"Frank Miller", "(555) 678-9012", "frank.miller@email.com"},
	{"Grace Lee", "(555) 789-0123", "grace.lee@email.com"},
	{"Henry Taylor", "(555) 890-1234", "henry.taylor@email.com"},
	{"Ivy Chen", "(555) 901-2345", "ivy.chen@email.com"},
	{"Jack Anderson", "(555) 012-3456", "jack.anderson@email.com"},
}

// SampleContacts returns the starter address book with fresh random balances.
func SampleContacts() []ledger.Contact {
	out := make([]ledger.Contact, 0, len(sampleContactBook))
	for _, c := range sampleContactBook {
		out = append(out, ledger.Contact{
			Name:        c.name,
			PhoneNumber: c.phone,
			Email:       c.email,
			Balance:     money.RandomBetween(sampleContactMin, sampleContactMax),
		})
	}
	return out
}
