package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/payvo/payvo/internal/identity"
)

// RegisterIdentityRoutes wires sign-up and verified account deletion.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
	r.Post("/accounts/delete", h.Delete)
}
