package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/payvo/payvo/internal/session"
)

// RegisterSessionRoutes wires sign-in and the per-session voice and ledger
// endpoints.
func RegisterSessionRoutes(r fiber.Router, h *session.Handler, rateLimiter fiber.Handler) {
	if rateLimiter != nil {
		r.Post("/sessions", rateLimiter, h.Login)
	} else {
		r.Post("/sessions", h.Login)
	}

	s := r.Group("/sessions/:id")
	s.Delete("", h.Logout)
	s.Post("/commands", h.Command)
	s.Post("/confirm", h.Confirm)
	s.Post("/cancel", h.Cancel)
	s.Get("/account", h.Account)
	s.Get("/transactions", h.Transactions)
	s.Get("/contacts", h.Contacts)
	s.Post("/contacts", h.AddContact)
	s.Delete("/contacts/:contactId", h.RemoveContact)
	s.Put("/contacts/:name/balance", h.SetContactBalance)
	s.Get("/requests", h.Requests)
	s.Post("/requests/:requestId", h.AnswerRequest)
	s.Post("/deposit", h.Deposit)
	s.Post("/withdraw", h.Withdraw)
	s.Post("/splits/collect", h.CollectSplit)
	s.Get("/search", h.Search)
}
