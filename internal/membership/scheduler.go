package membership

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/coins"
	"github.com/coinharbor/coinharbor/internal/ledger"
)

// Outcome classifies what the scheduler did for one membership in a run.
type Outcome string

const (
	OutcomeSkipped   Outcome = "already_paid_today"
	OutcomeDailyPaid Outcome = "daily_credited"
	OutcomeBonusPaid Outcome = "bonus_credited"
	OutcomeCompleted Outcome = "completed"
	OutcomeError     Outcome = "error"
)

// PayoutResult reports the scheduler's decision for a single membership.
type PayoutResult struct {
	MembershipID string  `json:"membership_id"`
	UserID       string  `json:"user_id"`
	Tier         string  `json:"tier"`
	Outcome      Outcome `json:"outcome"`
	Amount       float64 `json:"amount,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Scheduler advances active memberships and credits daily and bonus payouts.
// It is invoked on a fixed cadence by an external caller through the admin
// gate. The at-most-once-per-day guard compares calendar dates in UTC, so two
// overlapping runs on the same day are only protected up to the persistence of
// LastPayout between them.
type Scheduler struct {
	memberships Repository
	accounts    account.Repository
	ledger      ledger.Repository
	logger      *slog.Logger
	now         func() time.Time
}

// NewScheduler builds a payout scheduler.
func NewScheduler(memberships Repository, accounts account.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		memberships: memberships,
		accounts:    accounts,
		ledger:      ledgerRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// Run processes every payable membership once and returns per-membership results.
// A failure while handling one membership is recorded in its result and does
// not stop the run.
func (s *Scheduler) Run(ctx context.Context) ([]PayoutResult, error) {
	memberships, err := s.memberships.ListPayable(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	results := make([]PayoutResult, 0, len(memberships))
	for _, m := range memberships {
		results = append(results, s.process(ctx, m, now))
	}
	return results, nil
}

func (s *Scheduler) process(ctx context.Context, m Membership, now time.Time) PayoutResult {
	result := PayoutResult{MembershipID: m.ID, UserID: m.UserID, Tier: m.Tier}

	if !m.LastPayout.IsZero() && sameDay(m.LastPayout, now) {
		result.Outcome = OutcomeSkipped
		return result
	}

	if m.DaysPaid >= m.DurationDays {
		if m.BonusPaid {
			result.Outcome = OutcomeCompleted
			return result
		}
		return s.payBonus(ctx, m, now, result)
	}

	return s.payDaily(ctx, m, now, result)
}

func (s *Scheduler) payDaily(ctx context.Context, m Membership, now time.Time, result PayoutResult) PayoutResult {
	if err := s.credit(ctx, m, ledger.KindMembershipPayout, m.DailyAmount, now); err != nil {
		return s.fail(result, err)
	}

	m.DaysPaid++
	m.LastPayout = now
	if m.DaysPaid >= m.DurationDays {
		m.Status = StatusCompleted
	}
	if err := s.memberships.Update(ctx, m); err != nil {
		return s.fail(result, err)
	}

	result.Outcome = OutcomeDailyPaid
	result.Amount = m.DailyAmount
	s.logger.Info("membership daily payout",
		slog.String("membership_id", m.ID),
		slog.String("user_id", m.UserID),
		slog.String("tier", m.Tier),
		slog.Int("days_paid", m.DaysPaid),
	)
	return result
}

func (s *Scheduler) payBonus(ctx context.Context, m Membership, now time.Time, result PayoutResult) PayoutResult {
	if err := s.credit(ctx, m, ledger.KindPayout, m.BonusAmount, now); err != nil {
		return s.fail(result, err)
	}

	m.BonusPaid = true
	m.LastPayout = now
	m.Status = StatusCompleted
	if err := s.memberships.Update(ctx, m); err != nil {
		return s.fail(result, err)
	}

	result.Outcome = OutcomeBonusPaid
	result.Amount = m.BonusAmount
	s.logger.Info("membership bonus payout",
		slog.String("membership_id", m.ID),
		slog.String("user_id", m.UserID),
		slog.String("tier", m.Tier),
	)
	return result
}

// credit records a confirmed payout transaction and credits the user's USD balance.
func (s *Scheduler) credit(ctx context.Context, m Membership, kind ledger.Kind, amount float64, now time.Time) error {
	tx := ledger.Transaction{
		ID:        uuid.New().String(),
		UserID:    m.UserID,
		Kind:      kind,
		Coin:      coins.USD,
		Amount:    amount,
		Status:    ledger.StatusConfirmed,
		Metadata:  map[string]string{ledger.MetaTier: m.Tier},
		CreatedAt: now,
	}
	if err := s.ledger.Create(ctx, tx); err != nil {
		return err
	}
	return s.accounts.Credit(ctx, m.UserID, coins.USD, amount)
}

func (s *Scheduler) fail(result PayoutResult, err error) PayoutResult {
	result.Outcome = OutcomeError
	result.Error = err.Error()
	s.logger.Error("membership payout failed",
		slog.String("membership_id", result.MembershipID),
		slog.Any("error", err),
	)
	return result
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
