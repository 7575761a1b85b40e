package admin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/ledger"
	"github.com/coinharbor/coinharbor/internal/membership"
)

var (
	// ErrWrongKind occurs when an approval targets a transaction of another kind.
	ErrWrongKind = errors.New("transaction kind does not match operation")
)

// Service implements the admin gate: the only code path allowed to settle
// pending transactions and mutate balances for deposits and withdrawals.
type Service struct {
	accounts    account.Repository
	ledger      ledger.Repository
	memberships membership.Repository
	scheduler   *membership.Scheduler
	logger      *slog.Logger
}

// NewService builds the admin service.
func NewService(accounts account.Repository, ledgerRepo ledger.Repository, memberships membership.Repository, scheduler *membership.Scheduler, logger *slog.Logger) *Service {
	return &Service{
		accounts:    accounts,
		ledger:      ledgerRepo,
		memberships: memberships,
		scheduler:   scheduler,
		logger:      logger,
	}
}

// ApproveDeposit confirms a pending deposit. Re-approving a confirmed deposit
// is a no-op. A deposit tagged with a recognized membership tier activates a
// membership instead of crediting the balance; an unrecognized tier falls back
// to a plain credit.
func (s *Service) ApproveDeposit(ctx context.Context, txID string) (ledger.Transaction, error) {
	tx, err := s.ledger.Get(ctx, txID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if tx.Kind != ledger.KindDeposit {
		return ledger.Transaction{}, ErrWrongKind
	}
	if tx.Status == ledger.StatusConfirmed {
		return tx, nil
	}
	if tx.Status != ledger.StatusPending {
		return ledger.Transaction{}, ledger.ErrAlreadySettled
	}

	// Claim the transition first so a racing approval cannot double-credit.
	if err := s.ledger.Settle(ctx, txID, ledger.StatusPending, ledger.StatusConfirmed, nil); err != nil {
		if errors.Is(err, ledger.ErrAlreadySettled) {
			current, getErr := s.ledger.Get(ctx, txID)
			if getErr == nil && current.Status == ledger.StatusConfirmed {
				return current, nil
			}
		}
		return ledger.Transaction{}, err
	}

	if tier, ok := membership.TierByCode(tx.Metadata[ledger.MetaTier]); ok {
		if err := s.activateMembership(ctx, tx.UserID, tier); err != nil {
			return ledger.Transaction{}, err
		}
	} else {
		if err := s.accounts.Credit(ctx, tx.UserID, tx.Coin, tx.Amount); err != nil {
			return ledger.Transaction{}, err
		}
	}

	s.logger.Info("deposit approved",
		slog.String("tx_id", tx.ID),
		slog.String("user_id", tx.UserID),
		slog.String("coin", tx.Coin),
		slog.Float64("amount", tx.Amount),
	)

	tx.Status = ledger.StatusConfirmed
	return tx, nil
}

// ApproveWithdraw confirms a pending withdrawal, re-checking and deducting
// the balance atomically. A shortfall at approval time declines the
// transaction instead of confirming it.
func (s *Service) ApproveWithdraw(ctx context.Context, txID, txHash string) (ledger.Transaction, error) {
	tx, err := s.ledger.Get(ctx, txID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if tx.Kind != ledger.KindWithdraw {
		return ledger.Transaction{}, ErrWrongKind
	}
	if tx.Status == ledger.StatusConfirmed {
		return tx, nil
	}
	if tx.Status != ledger.StatusPending {
		return ledger.Transaction{}, ledger.ErrAlreadySettled
	}

	if err := s.accounts.Debit(ctx, tx.UserID, tx.Coin, tx.Amount); err != nil {
		if errors.Is(err, account.ErrInsufficientFunds) {
			if declineErr := s.ledger.Settle(ctx, txID, ledger.StatusPending, ledger.StatusDeclined, nil); declineErr != nil {
				return ledger.Transaction{}, declineErr
			}
			return ledger.Transaction{}, err
		}
		return ledger.Transaction{}, err
	}

	meta := map[string]string{}
	if txHash != "" {
		meta[ledger.MetaTxHash] = txHash
	}
	if err := s.ledger.Settle(ctx, txID, ledger.StatusPending, ledger.StatusConfirmed, meta); err != nil {
		if errors.Is(err, ledger.ErrAlreadySettled) {
			// Another approval settled it first; return the deducted funds.
			_ = s.accounts.Credit(ctx, tx.UserID, tx.Coin, tx.Amount)
			current, getErr := s.ledger.Get(ctx, txID)
			if getErr == nil && current.Status == ledger.StatusConfirmed {
				return current, nil
			}
		}
		return ledger.Transaction{}, err
	}

	s.logger.Info("withdrawal approved",
		slog.String("tx_id", tx.ID),
		slog.String("user_id", tx.UserID),
		slog.String("coin", tx.Coin),
		slog.Float64("amount", tx.Amount),
	)

	tx.Status = ledger.StatusConfirmed
	for k, v := range meta {
		tx.Metadata[k] = v
	}
	return tx, nil
}

// Decline marks a pending transaction declined. Balances are never touched:
// decline is request-time only and cannot reverse a prior approval.
func (s *Service) Decline(ctx context.Context, txID string) (ledger.Transaction, error) {
	tx, err := s.ledger.Get(ctx, txID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if tx.Status == ledger.StatusDeclined {
		return tx, nil
	}
	if tx.Status != ledger.StatusPending {
		return ledger.Transaction{}, ledger.ErrAlreadySettled
	}
	if err := s.ledger.Settle(ctx, txID, ledger.StatusPending, ledger.StatusDeclined, nil); err != nil {
		return ledger.Transaction{}, err
	}
	tx.Status = ledger.StatusDeclined
	return tx, nil
}

// Users lists every registered account.
func (s *Service) Users(ctx context.Context) ([]account.User, error) {
	return s.accounts.List(ctx)
}

// Balances returns a user's balance map for the admin listing.
func (s *Service) Balances(ctx context.Context, userID string) (map[string]float64, error) {
	return s.accounts.Balances(ctx, userID)
}

// PendingDeposits lists deposit requests awaiting review.
func (s *Service) PendingDeposits(ctx context.Context) ([]ledger.Transaction, error) {
	return s.ledger.ListByStatusKind(ctx, ledger.StatusPending, ledger.KindDeposit)
}

// PendingWithdraws lists withdrawal requests awaiting review.
func (s *Service) PendingWithdraws(ctx context.Context) ([]ledger.Transaction, error) {
	return s.ledger.ListByStatusKind(ctx, ledger.StatusPending, ledger.KindWithdraw)
}

// RunPayouts executes one scheduler pass over payable memberships.
func (s *Service) RunPayouts(ctx context.Context) ([]membership.PayoutResult, error) {
	return s.scheduler.Run(ctx)
}

// activateMembership supersedes any existing active plan and stamps the
// user's active-membership reference.
func (s *Service) activateMembership(ctx context.Context, userID string, tier membership.Tier) error {
	if existing, err := s.memberships.FindActiveByUser(ctx, userID); err == nil {
		existing.Status = membership.StatusCancelled
		if err := s.memberships.Update(ctx, existing); err != nil {
			return err
		}
	}

	m := membership.Membership{
		ID:           uuid.New().String(),
		UserID:       userID,
		Tier:         tier.Code,
		Status:       membership.StatusActive,
		StartedAt:    time.Now().UTC(),
		DurationDays: tier.DurationDays,
		DailyAmount:  tier.DailyAmount,
		BonusAmount:  tier.BonusAmount,
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		return err
	}
	return s.accounts.SetActiveMembership(ctx, userID, m.ID)
}
