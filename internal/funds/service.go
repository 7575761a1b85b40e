package funds

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/coins"
	"github.com/coinharbor/coinharbor/internal/ledger"
)

var (
	// ErrUnsupportedCoin occurs when the requested symbol is not in the supported set.
	ErrUnsupportedCoin = errors.New("unsupported coin")

	// ErrInvalidAmount occurs when the requested amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSelfTransfer occurs when a user tries to transfer funds to themselves.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")
)

// Service implements the user-facing money flows: deposit and withdrawal
// requests that wait for admin approval, and internal transfers that settle
// immediately.
type Service struct {
	accounts account.Repository
	ledger   ledger.Repository
}

// NewService builds a funds service.
func NewService(accounts account.Repository, ledgerRepo ledger.Repository) *Service {
	return &Service{accounts: accounts, ledger: ledgerRepo}
}

// Deposit records a pending deposit request. A membership tier, when present,
// is tagged in metadata so approval activates the membership instead of
// crediting the balance.
func (s *Service) Deposit(ctx context.Context, userID, coin string, amount float64, tier string) (ledger.Transaction, error) {
	coin = coins.Normalize(coin)
	if !coins.IsSupported(coin) {
		return ledger.Transaction{}, ErrUnsupportedCoin
	}
	if amount <= 0 {
		return ledger.Transaction{}, ErrInvalidAmount
	}
	if _, err := s.accounts.FindByID(ctx, userID); err != nil {
		return ledger.Transaction{}, err
	}

	meta := map[string]string{}
	if tier != "" {
		meta[ledger.MetaTier] = tier
	}

	tx := ledger.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      ledger.KindDeposit,
		Coin:      coin,
		Amount:    amount,
		Status:    ledger.StatusPending,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.ledger.Create(ctx, tx); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// Withdraw records a pending withdrawal request after checking the current
// balance covers it. The balance is checked again, atomically, at approval
// time; no transaction row is written when this first check fails.
func (s *Service) Withdraw(ctx context.Context, userID, coin string, amount float64, address string) (ledger.Transaction, error) {
	coin = coins.Normalize(coin)
	if !coins.IsSupported(coin) {
		return ledger.Transaction{}, ErrUnsupportedCoin
	}
	if amount <= 0 {
		return ledger.Transaction{}, ErrInvalidAmount
	}

	balances, err := s.accounts.Balances(ctx, userID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if balances[coin] < amount {
		return ledger.Transaction{}, account.ErrInsufficientFunds
	}

	meta := map[string]string{}
	if address != "" {
		meta[ledger.MetaAddress] = address
	}

	tx := ledger.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      ledger.KindWithdraw,
		Coin:      coin,
		Amount:    amount,
		Status:    ledger.StatusPending,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.ledger.Create(ctx, tx); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// TransferResult reports both halves of an internal transfer.
type TransferResult struct {
	SentTxID     string
	ReceivedTxID string
	Recipient    string
}

// Transfer moves funds between two users immediately and records two linked
// confirmed ledger entries. This is the only flow that mutates balances
// outside the admin gate.
func (s *Service) Transfer(ctx context.Context, senderID, recipient, coin string, amount float64) (TransferResult, error) {
	coin = coins.Normalize(coin)
	if !coins.IsSupported(coin) {
		return TransferResult{}, ErrUnsupportedCoin
	}
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	sender, err := s.accounts.FindByID(ctx, senderID)
	if err != nil {
		return TransferResult{}, err
	}
	target, err := s.accounts.FindByIdentifier(ctx, recipient)
	if err != nil {
		return TransferResult{}, err
	}
	if target.ID == sender.ID {
		return TransferResult{}, ErrSelfTransfer
	}

	if err := s.accounts.Transfer(ctx, sender.ID, target.ID, coin, amount); err != nil {
		return TransferResult{}, err
	}

	now := time.Now().UTC()
	linkID := uuid.New().String()

	sent := ledger.Transaction{
		ID:     uuid.New().String(),
		UserID: sender.ID,
		Kind:   ledger.KindTransfer,
		Coin:   coin,
		Amount: amount,
		Status: ledger.StatusConfirmed,
		Metadata: map[string]string{
			ledger.MetaDirection:    ledger.DirectionSent,
			ledger.MetaCounterparty: target.Username,
			ledger.MetaLinkID:       linkID,
		},
		CreatedAt: now,
	}
	received := ledger.Transaction{
		ID:     uuid.New().String(),
		UserID: target.ID,
		Kind:   ledger.KindTransfer,
		Coin:   coin,
		Amount: amount,
		Status: ledger.StatusConfirmed,
		Metadata: map[string]string{
			ledger.MetaDirection:    ledger.DirectionReceived,
			ledger.MetaCounterparty: sender.Username,
			ledger.MetaLinkID:       linkID,
		},
		CreatedAt: now,
	}

	if err := s.ledger.Create(ctx, sent); err != nil {
		return TransferResult{}, err
	}
	if err := s.ledger.Create(ctx, received); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{SentTxID: sent.ID, ReceivedTxID: received.ID, Recipient: target.Username}, nil
}

// Transactions returns the user's ledger history, newest first.
func (s *Service) Transactions(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	return s.ledger.ListByUser(ctx, userID)
}

// Verify looks up a transaction's settlement state by identifier.
func (s *Service) Verify(ctx context.Context, txID string) (ledger.Transaction, error) {
	return s.ledger.Get(ctx, txID)
}
