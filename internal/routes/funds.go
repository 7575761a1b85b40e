package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinharbor/coinharbor/internal/funds"
)

// RegisterFundsRoutes wires deposit, withdrawal and transfer endpoints.
func RegisterFundsRoutes(r fiber.Router, h *funds.Handler) {
	r.Post("/deposit", h.Deposit)
	r.Post("/withdraw", h.Withdraw)
	r.Post("/internal-transfer", h.Transfer)
	r.Get("/transactions", h.Transactions)
}
