package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/payvo/payvo/internal/ledger"
	"github.com/payvo/payvo/internal/voiceprint"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passphrases alike.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrNoVoiceSample       = errors.New("no voice sample on file")
)

const minPassphraseLen = 4

// Options configure a Service.
type Options struct {
	SeedSampleContacts bool
	Comparator         voiceprint.Comparator
	Logger             *slog.Logger
}

// Service manages sign-up, sign-in and account removal.
type Service struct {
	accounts     Accounts
	comparator   voiceprint.Comparator
	seedContacts bool
	logger       *slog.Logger
}

// NewService creates a new identity service.
func NewService(accounts Accounts, opts Options) *Service {
	if opts.Comparator == nil {
		opts.Comparator = voiceprint.NewToleranceComparator()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		accounts:     accounts,
		comparator:   opts.Comparator,
		seedContacts: opts.SeedSampleContacts,
		logger:       opts.Logger,
	}
}

// Register creates an account and stores a hashed passphrase. A missing name
// is taken from the voice sample's transcript.
func (s *Service) Register(ctx context.Context, in Registration) (ledger.Account, error) {
	email := strings.TrimSpace(in.Email)
	if !strings.Contains(email, "@") {
		return ledger.Account{}, fmt.Errorf("%w: a valid email is required", ErrInvalidRegistration)
	}
	passphrase := normalizePassphrase(in.Passphrase)
	if len(passphrase) < minPassphraseLen {
		return ledger.Account{}, fmt.Errorf("%w: passphrase must be at least %d characters", ErrInvalidRegistration, minPassphraseLen)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" && in.VoiceSample != nil {
		name = ExtractName(in.VoiceSample.Transcript)
	}
	if name == "" {
		name = FallbackName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return ledger.Account{}, err
	}

	var contacts []ledger.Contact
	if s.seedContacts {
		contacts = SampleContacts()
	}
	acct, err := s.accounts.Create(ctx, ledger.NewAccount{
		Email:          email,
		Name:           name,
		PhoneNumber:    in.PhoneNumber,
		PassphraseHash: string(hash),
		VoiceSample:    in.VoiceSample,
		Contacts:       contacts,
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.logger.Info("identity registered", "email", acct.Email, "contacts", len(acct.Contacts))
	return acct, nil
}

// Authenticate checks the passphrase for email. A voice sample, when both
// sides have one, only adds a logged confidence score. Accounts at or below
// zero are topped up; the bool reports whether that happened.
func (s *Service) Authenticate(ctx context.Context, email, passphrase string, sample *voiceprint.Sample) (ledger.Account, bool, error) {
	acct, err := s.accounts.Get(email)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return ledger.Account{}, false, ErrInvalidCredentials
	}
	if err != nil {
		return ledger.Account{}, false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PassphraseHash), []byte(normalizePassphrase(passphrase))); err != nil {
		s.logger.Warn("identity authentication failed", "email", acct.Email)
		return ledger.Account{}, false, ErrInvalidCredentials
	}

	if sample != nil && acct.VoiceSample != nil {
		s.logger.Info("voice sample scored", "email", acct.Email,
			"match", s.comparator.Compare(*acct.VoiceSample, *sample),
			"confidence", s.comparator.Confidence(*acct.VoiceSample, *sample))
	}

	acct, topped, err := s.accounts.EnsureFunded(ctx, acct.Email)
	if err != nil {
		return ledger.Account{}, false, err
	}
	s.logger.Info("identity authenticated", "email", acct.Email, "topped_up", topped)
	return acct, topped, nil
}

// VerifySample compares sample against the one stored at registration.
func (s *Service) VerifySample(email string, sample voiceprint.Sample) (bool, float64, error) {
	acct, err := s.accounts.Get(email)
	if err != nil {
		return false, 0, err
	}
	if acct.VoiceSample == nil {
		return false, 0, ErrNoVoiceSample
	}
	return s.comparator.Compare(*acct.VoiceSample, sample), s.comparator.Confidence(*acct.VoiceSample, sample), nil
}

// UpdateNameFromVoice renames the account after a spoken introduction. It
// reports false when no usable name was heard or the name is unchanged.
func (s *Service) UpdateNameFromVoice(ctx context.Context, email, message string) (ledger.Account, bool, error) {
	acct, err := s.accounts.Get(email)
	if err != nil {
		return ledger.Account{}, false, err
	}
	name := ExtractName(message)
	if name == FallbackName || name == acct.Name {
		return acct, false, nil
	}
	acct, err = s.accounts.Rename(ctx, acct.Email, name)
	if err != nil {
		return ledger.Account{}, false, err
	}
	s.logger.Info("identity renamed from voice", "email", acct.Email, "name", name)
	return acct, true, nil
}

// Delete removes an account once email, phone number and tag all match. The
// tag is compared exactly; only surrounding whitespace is ignored.
func (s *Service) Delete(ctx context.Context, email, phone, tag string) error {
	return s.accounts.VerifiedDelete(ctx, email, strings.TrimSpace(phone), strings.TrimSpace(tag))
}

// Search finds other registered accounts by name or email.
func (s *Service) Search(actingEmail, query string) []ledger.Account {
	return s.accounts.Search(actingEmail, query)
}

func normalizePassphrase(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
