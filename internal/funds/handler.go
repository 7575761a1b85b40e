package funds

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/ledger"
)

// Handler exposes deposit, withdrawal, transfer and lookup endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a funds HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	Coin           string  `json:"coin"`
	Amount         float64 `json:"amount"`
	MembershipTier string  `json:"membershipTier"`
}

type withdrawRequest struct {
	Coin    string  `json:"coin"`
	Amount  float64 `json:"amount"`
	Address string  `json:"address"`
}

type transferRequest struct {
	Recipient string  `json:"recipient"`
	Coin      string  `json:"coin"`
	Amount    float64 `json:"amount"`
}

type verifyRequest struct {
	TxID string `json:"txId"`
}

// TransactionResponse is the wire form of a ledger transaction.
type TransactionResponse struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Coin      string            `json:"coin"`
	Amount    float64           `json:"amount"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ToTransactionResponse converts a ledger transaction for JSON output.
func ToTransactionResponse(tx ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		Kind:      string(tx.Kind),
		Coin:      tx.Coin,
		Amount:    tx.Amount,
		Status:    string(tx.Status),
		Metadata:  tx.Metadata,
		CreatedAt: tx.CreatedAt,
	}
}

// ToTransactionResponses converts a slice of ledger transactions.
func ToTransactionResponses(txs []ledger.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToTransactionResponse(tx))
	}
	return out
}

// Deposit files a pending deposit request for the session user.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.service.Deposit(c.UserContext(), userID, req.Coin, req.Amount, req.MembershipTier)
	if err != nil {
		return mapFundsError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"ok": true, "txId": tx.ID})
}

// Withdraw files a pending withdrawal request for the session user.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.service.Withdraw(c.UserContext(), userID, req.Coin, req.Amount, req.Address)
	if err != nil {
		return mapFundsError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"ok": true, "txId": tx.ID})
}

// Transfer moves funds to another user immediately.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	result, err := h.service.Transfer(c.UserContext(), userID, req.Recipient, req.Coin, req.Amount)
	if err != nil {
		return mapFundsError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"ok":        true,
		"txId":      result.SentTxID,
		"recipient": result.Recipient,
	})
}

// Transactions lists the session user's ledger history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	txs, err := h.service.Transactions(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "transactions": ToTransactionResponses(txs)})
}

// Verify reports the settlement state of a transaction by identifier.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.service.Verify(c.UserContext(), req.TxID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": string(tx.Status),
		"coin":   tx.Coin,
		"amount": tx.Amount,
	})
}

func mapFundsError(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedCoin), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
