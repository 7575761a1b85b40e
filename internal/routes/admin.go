package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinharbor/coinharbor/internal/admin"
)

// RegisterAdminRoutes wires the shared-secret-gated admin endpoints and the
// external payout trigger.
func RegisterAdminRoutes(r fiber.Router, h *admin.Handler, adminKey fiber.Handler) {
	group := r.Group("/admin", adminKey)
	group.Get("/users", h.Users)
	group.Get("/pending-deposits", h.PendingDeposits)
	group.Get("/pending-withdraws", h.PendingWithdraws)
	group.Post("/approve-deposit", h.ApproveDeposit)
	group.Post("/approve-withdraw", h.ApproveWithdraw)
	group.Post("/decline-transaction", h.Decline)

	r.Post("/cron/payouts", adminKey, h.RunPayouts)
}
