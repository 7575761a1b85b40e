package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/funds"
	"github.com/coinharbor/coinharbor/internal/ledger"
)

// Handler exposes the admin gate endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an admin HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type approveRequest struct {
	TxID   string `json:"txId"`
	TxHash string `json:"txHash"`
}

type adminUserResponse struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	Username           string             `json:"username"`
	ActiveMembershipID string             `json:"active_membership_id,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	Balances           map[string]float64 `json:"balances"`
}

// Users lists all accounts with their balance maps.
func (h *Handler) Users(c *fiber.Ctx) error {
	users, err := h.service.Users(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]adminUserResponse, 0, len(users))
	for _, user := range users {
		balances, err := h.service.Balances(c.UserContext(), user.ID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out = append(out, adminUserResponse{
			ID:                 user.ID,
			Email:              user.Email,
			Username:           user.Username,
			ActiveMembershipID: user.ActiveMembershipID,
			CreatedAt:          user.CreatedAt,
			Balances:           balances,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "users": out})
}

// PendingDeposits lists deposit requests awaiting review.
func (h *Handler) PendingDeposits(c *fiber.Ctx) error {
	txs, err := h.service.PendingDeposits(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "transactions": funds.ToTransactionResponses(txs)})
}

// PendingWithdraws lists withdrawal requests awaiting review.
func (h *Handler) PendingWithdraws(c *fiber.Ctx) error {
	txs, err := h.service.PendingWithdraws(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "transactions": funds.ToTransactionResponses(txs)})
}

// ApproveDeposit confirms a pending deposit.
func (h *Handler) ApproveDeposit(c *fiber.Ctx) error {
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.service.ApproveDeposit(c.UserContext(), req.TxID)
	if err != nil {
		return mapAdminError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "transaction": funds.ToTransactionResponse(tx)})
}

// ApproveWithdraw confirms a pending withdrawal, attaching the supplied hash.
func (h *Handler) ApproveWithdraw(c *fiber.Ctx) error {
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.service.ApproveWithdraw(c.UserContext(), req.TxID, req.TxHash)
	if err != nil {
		return mapAdminError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "transaction": funds.ToTransactionResponse(tx)})
}

// Decline marks a pending transaction declined.
func (h *Handler) Decline(c *fiber.Ctx) error {
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.service.Decline(c.UserContext(), req.TxID)
	if err != nil {
		return mapAdminError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "transaction": funds.ToTransactionResponse(tx)})
}

// RunPayouts triggers one payout scheduler pass and returns per-membership results.
func (h *Handler) RunPayouts(c *fiber.Ctx) error {
	results, err := h.service.RunPayouts(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "results": results})
}

func mapAdminError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrAlreadySettled):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrWrongKind):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
