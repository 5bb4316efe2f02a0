package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/payvo/payvo/internal/ledger"
	"github.com/payvo/payvo/internal/voiceprint"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
	// OnDelete runs after an account is removed, e.g. to end its sessions.
	OnDelete func(ctx context.Context, email string)
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type registerRequest struct {
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	PhoneNumber string             `json:"phone_number"`
	Passphrase  string             `json:"passphrase"`
	VoiceSample *voiceprint.Sample `json:"voice_sample"`
}

type deleteRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	UniqueTag   string `json:"unique_tag"`
}

// Register handles sign-up.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Register(c.UserContext(), Registration{
		Email:       req.Email,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Passphrase:  req.Passphrase,
		VoiceSample: req.VoiceSample,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRegistration):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrAccountExists):
			return fiber.NewError(http.StatusConflict, "account already exists")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	if h.logger != nil {
		h.logger.Info("identity.register completed",
			slog.String("email", acct.Email),
			slog.Int("status", http.StatusCreated),
		)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"email":        acct.Email,
		"name":         acct.Name,
		"phone_number": acct.PhoneNumber,
		"balance":      acct.Balance,
		"unique_tag":   acct.UniqueTag,
		"contacts":     len(acct.Contacts),
	})
}

// Delete removes an account after checking email, phone and tag.
func (h *Handler) Delete(c *fiber.Ctx) error {
	var req deleteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Delete(c.UserContext(), req.Email, req.PhoneNumber, req.UniqueTag); err != nil {
		if errors.Is(err, ledger.ErrVerificationFailed) {
			return fiber.NewError(http.StatusForbidden, "verification failed")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if h.OnDelete != nil {
		h.OnDelete(c.UserContext(), req.Email)
	}
	return c.SendStatus(http.StatusNoContent)
}
