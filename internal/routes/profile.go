package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/funds"
	"github.com/coinharbor/coinharbor/internal/ledger"
	"github.com/coinharbor/coinharbor/internal/membership"
)

// RegisterProfileRoutes exposes the aggregated profile view and profile updates.
func RegisterProfileRoutes(r fiber.Router, accounts *account.Service, h *account.Handler, memberships membership.Repository, ledgerRepo ledger.Repository) {
	r.Get("/profile", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}

		user, err := accounts.Get(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		balances, err := accounts.Balances(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		txs, err := ledgerRepo.ListByUser(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		var membershipView fiber.Map
		if user.ActiveMembershipID != "" {
			if m, err := memberships.Get(c.UserContext(), user.ActiveMembershipID); err == nil {
				membershipView = fiber.Map{
					"id":            m.ID,
					"tier":          m.Tier,
					"status":        m.Status,
					"started_at":    m.StartedAt,
					"duration_days": m.DurationDays,
					"days_paid":     m.DaysPaid,
					"daily_amount":  m.DailyAmount,
					"bonus_amount":  m.BonusAmount,
					"bonus_paid":    m.BonusPaid,
				}
			}
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"ok": true,
			"user": fiber.Map{
				"id":         user.ID,
				"email":      user.Email,
				"username":   user.Username,
				"bio":        user.Bio,
				"created_at": user.CreatedAt,
			},
			"balances":     balances,
			"membership":   membershipView,
			"transactions": funds.ToTransactionResponses(txs),
		})
	})

	r.Put("/profile", h.UpdateProfile)
}
