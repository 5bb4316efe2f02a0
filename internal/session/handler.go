package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payvo/payvo/internal/identity"
	"github.com/payvo/payvo/internal/ledger"
	"github.com/payvo/payvo/internal/voiceprint"
)

// Authenticator checks sign-in credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, passphrase string, sample *voiceprint.Sample) (ledger.Account, bool, error)
}

// Handler exposes session endpoints.
type Handler struct {
	manager *Manager
	auth    Authenticator
}

// NewHandler constructs a session handler.
func NewHandler(manager *Manager, auth Authenticator) *Handler {
	return &Handler{manager: manager, auth: auth}
}

type loginRequest struct {
	Email       string             `json:"email"`
	Passphrase  string             `json:"passphrase"`
	VoiceSample *voiceprint.Sample `json:"voice_sample"`
}

type commandRequest struct {
	Utterance string `json:"utterance"`
}

type amountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type contactRequest struct {
	Name        string          `json:"name"`
	PhoneNumber string          `json:"phone_number"`
	Email       string          `json:"email"`
	Balance     decimal.Decimal `json:"balance"`
}

type answerRequest struct {
	Accept bool `json:"accept"`
}

// Login authenticates and opens a session.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, topped, err := h.auth.Authenticate(c.UserContext(), req.Email, req.Passphrase, req.VoiceSample)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	s, err := h.manager.Open(acct.Email)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"session_id": s.ID,
		"email":      acct.Email,
		"name":       acct.Name,
		"balance":    acct.Balance,
		"topped_up":  topped,
	})
}

// Logout closes the session, cancelling anything parked.
func (h *Handler) Logout(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, ErrSessionNotFound.Error())
	}
	if err := h.manager.Close(c.UserContext(), id); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Command runs one utterance.
func (h *Handler) Command(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req commandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Utterance) == "" {
		return fiber.NewError(http.StatusBadRequest, "utterance required")
	}
	return c.JSON(s.Process(c.UserContext(), req.Utterance))
}

// Confirm replays the parked transaction.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.Confirm(c.UserContext()))
}

// Cancel drops the parked transaction.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.Cancel(c.UserContext()))
}

// Account returns the signed-in account without its passphrase hash.
func (h *Handler) Account(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	acct, err := h.manager.Directory().Get(s.Email())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"email":        acct.Email,
		"name":         acct.Name,
		"phone_number": acct.PhoneNumber,
		"balance":      acct.Balance,
		"unique_tag":   acct.UniqueTag,
		"created_at":   acct.CreatedAt,
	})
}

// Transactions lists the account history, oldest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	history, err := h.manager.Directory().History(s.Email())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"transactions": history})
}

// Contacts lists the address book.
func (h *Handler) Contacts(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	contacts, err := h.manager.Directory().Contacts(c.UserContext(), s.Email())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"contacts": contacts})
}

// AddContact adds an address book entry.
func (h *Handler) AddContact(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(http.StatusBadRequest, "name required")
	}
	contact, err := h.manager.Directory().AddContact(c.UserContext(), s.Email(), ledger.Contact{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Balance:     req.Balance,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(contact)
}

// RemoveContact deletes an address book entry by id.
func (h *Handler) RemoveContact(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("contactId"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, ledger.ErrContactNotFound.Error())
	}
	if err := h.manager.Directory().RemoveContact(c.UserContext(), s.Email(), id); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type contactBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

// SetContactBalance overwrites the mirrored balance of a contact by name.
func (h *Handler) SetContactBalance(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req contactBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	name := c.Params("name")
	if err := h.manager.Directory().UpdateContactBalance(c.UserContext(), s.Email(), name, req.Balance); err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"name": name, "balance": req.Balance})
}

// Requests lists pending money requests addressed to the account.
func (h *Handler) Requests(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"requests": h.manager.Directory().PendingRequestsFor(s.Email())})
}

// AnswerRequest accepts or declines a pending money request.
func (h *Handler) AnswerRequest(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, ledger.ErrRequestNotFound.Error())
	}
	var req answerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	answered, err := h.manager.Directory().RespondToMoneyRequest(c.UserContext(), s.Email(), id, req.Accept)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(answered)
}

// Deposit credits the account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.adjust(c, (*ledger.Directory).Deposit)
}

// Withdraw debits the account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.adjust(c, (*ledger.Directory).Withdraw)
}

type adjustFunc func(d *ledger.Directory, ctx context.Context, email string, amount decimal.Decimal, description string) (ledger.Receipt, error)

func (h *Handler) adjust(c *fiber.Ctx, apply adjustFunc) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rcpt, err := apply(h.manager.Directory(), c.UserContext(), s.Email(), req.Amount, req.Description)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": rcpt.Transaction,
		"balance":     rcpt.Balance,
	})
}

type collectRequest struct {
	Names       []string        `json:"names"`
	Total       decimal.Decimal `json:"total"`
	Description string          `json:"description"`
}

// CollectSplit charges each named contact an even share of total, the
// speaker's share included, and credits the rest to the account.
func (h *Handler) CollectSplit(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req collectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rcpt, err := h.manager.Directory().CollectSplitFromContacts(c.UserContext(), s.Email(), req.Names, req.Total, req.Description)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction":  rcpt.Transaction,
		"balance":      rcpt.Balance,
		"per_person":   rcpt.PerPerson,
		"contributors": rcpt.Counterparties,
	})
}

// Search finds other accounts by name, email or phone.
func (h *Handler) Search(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	found := h.manager.Directory().Search(s.Email(), c.Query("q"))
	out := make([]fiber.Map, 0, len(found))
	for _, a := range found {
		out = append(out, fiber.Map{"email": a.Email, "name": a.Name, "phone_number": a.PhoneNumber})
	}
	return c.JSON(fiber.Map{"accounts": out})
}

func (h *Handler) session(c *fiber.Ctx) (*Session, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(http.StatusNotFound, ErrSessionNotFound.Error())
	}
	s, err := h.manager.Get(id)
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(http.StatusNotFound, "session not found")
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, ledger.ErrContactNotFound):
		return fiber.NewError(http.StatusNotFound, "contact not found")
	case errors.Is(err, ledger.ErrRequestNotFound):
		return fiber.NewError(http.StatusNotFound, "request not found")
	case errors.Is(err, ledger.ErrNotAddressee):
		return fiber.NewError(http.StatusForbidden, "request is addressed to another account")
	case errors.Is(err, ledger.ErrLinkNotMutual):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrRequestResolved):
		return fiber.NewError(http.StatusConflict, "request already answered")
	case errors.Is(err, ledger.ErrContactExists):
		return fiber.NewError(http.StatusConflict, "contact already exists")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrSelfTransfer), errors.Is(err, ledger.ErrNoContacts):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
