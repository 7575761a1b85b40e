package membership

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/coins"
	"github.com/coinharbor/coinharbor/internal/ledger"
	"github.com/coinharbor/coinharbor/internal/logging"
)

func newSchedulerFixture(t *testing.T) (*Scheduler, Repository, account.Repository, ledger.Repository, account.User) {
	t.Helper()
	accounts := account.NewMemoryRepository()
	ledgerRepo := ledger.NewMemoryRepository()
	memberships := NewMemoryRepository()
	sched := NewScheduler(memberships, accounts, ledgerRepo, logging.Discard())

	user := account.User{
		ID:        uuid.NewString(),
		Email:     "member@example.com",
		Username:  "member",
		CreatedAt: time.Now().UTC(),
	}
	if err := accounts.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return sched, memberships, accounts, ledgerRepo, user
}

func seedMembership(t *testing.T, repo Repository, userID string, tier Tier) Membership {
	t.Helper()
	m := Membership{
		ID:           uuid.NewString(),
		UserID:       userID,
		Tier:         tier.Code,
		Status:       StatusActive,
		StartedAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DurationDays: tier.DurationDays,
		DailyAmount:  tier.DailyAmount,
		BonusAmount:  tier.BonusAmount,
	}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	return m
}

func TestSchedulerPaysOncePerCalendarDay(t *testing.T) {
	sched, memberships, accounts, _, user := newSchedulerFixture(t)
	tier, _ := TierByCode("V1")
	seedMembership(t, memberships, user.ID, tier)

	day := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	sched.now = func() time.Time { return day }

	results, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != OutcomeDailyPaid {
		t.Fatalf("unexpected first-run results: %+v", results)
	}

	// Later the same calendar day, even close to midnight.
	sched.now = func() time.Time { return time.Date(2024, 3, 2, 23, 59, 0, 0, time.UTC) }
	results, err = sched.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if results[0].Outcome != OutcomeSkipped {
		t.Fatalf("expected same-day skip, got %s", results[0].Outcome)
	}

	balances, _ := accounts.Balances(context.Background(), user.ID)
	if balances[coins.USD] != tier.DailyAmount {
		t.Fatalf("expected a single daily credit of %f, got %f", tier.DailyAmount, balances[coins.USD])
	}
}

func TestSchedulerCompletesMembershipAndPaysBonusOnce(t *testing.T) {
	sched, memberships, accounts, ledgerRepo, user := newSchedulerFixture(t)
	tier, _ := TierByCode("V1")
	m := seedMembership(t, memberships, user.ID, tier)

	ctx := context.Background()
	start := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	// Five daily payouts on five distinct dates.
	for day := 0; day < tier.DurationDays; day++ {
		current := start.AddDate(0, 0, day)
		sched.now = func() time.Time { return current }
		results, err := sched.Run(ctx)
		if err != nil {
			t.Fatalf("run day %d: %v", day, err)
		}
		if results[0].Outcome != OutcomeDailyPaid {
			t.Fatalf("day %d: expected daily payout, got %s", day, results[0].Outcome)
		}
	}

	updated, _ := memberships.Get(ctx, m.ID)
	if updated.DaysPaid != tier.DurationDays || updated.Status != StatusCompleted {
		t.Fatalf("expected completed membership with daysPaid=%d, got %+v", tier.DurationDays, updated)
	}

	balances, _ := accounts.Balances(ctx, user.ID)
	expected := float64(tier.DurationDays) * tier.DailyAmount
	if balances[coins.USD] != expected {
		t.Fatalf("expected USD balance %f, got %f", expected, balances[coins.USD])
	}

	// Sixth run credits the bonus exactly once.
	sched.now = func() time.Time { return start.AddDate(0, 0, tier.DurationDays) }
	results, err := sched.Run(ctx)
	if err != nil {
		t.Fatalf("bonus run: %v", err)
	}
	if results[0].Outcome != OutcomeBonusPaid || results[0].Amount != tier.BonusAmount {
		t.Fatalf("expected bonus payout, got %+v", results[0])
	}

	balances, _ = accounts.Balances(ctx, user.ID)
	if balances[coins.USD] != expected+tier.BonusAmount {
		t.Fatalf("expected USD balance %f, got %f", expected+tier.BonusAmount, balances[coins.USD])
	}

	// Further runs report completion and stop crediting.
	sched.now = func() time.Time { return start.AddDate(0, 0, tier.DurationDays+1) }
	results, err = sched.Run(ctx)
	if err != nil {
		t.Fatalf("post-bonus run: %v", err)
	}
	if len(results) != 0 && results[0].Outcome != OutcomeCompleted {
		t.Fatalf("expected completed outcome or no payable memberships, got %+v", results)
	}

	balances, _ = accounts.Balances(ctx, user.ID)
	if balances[coins.USD] != expected+tier.BonusAmount {
		t.Fatalf("completed membership must not keep paying, got %f", balances[coins.USD])
	}

	// Ledger carries the full audit trail: five daily rows plus the bonus.
	txs, _ := ledgerRepo.ListByUser(ctx, user.ID)
	var daily, bonus int
	for _, tx := range txs {
		switch tx.Kind {
		case ledger.KindMembershipPayout:
			daily++
		case ledger.KindPayout:
			bonus++
		}
		if tx.Status != ledger.StatusConfirmed {
			t.Fatalf("payout rows must be self-confirmed, got %s", tx.Status)
		}
	}
	if daily != tier.DurationDays || bonus != 1 {
		t.Fatalf("expected %d daily rows and 1 bonus row, got %d/%d", tier.DurationDays, daily, bonus)
	}
}

func TestSchedulerSkipsBonusDayForDailyGuard(t *testing.T) {
	sched, memberships, accounts, _, user := newSchedulerFixture(t)
	tier := Tier{Code: "V1", DailyAmount: 10, DurationDays: 1, BonusAmount: 50}
	seedMembership(t, memberships, user.ID, tier)

	ctx := context.Background()
	day := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	sched.now = func() time.Time { return day }

	// Last daily payout completes the membership.
	results, _ := sched.Run(ctx)
	if results[0].Outcome != OutcomeDailyPaid {
		t.Fatalf("expected daily payout, got %s", results[0].Outcome)
	}

	// The bonus cannot be claimed the same day; the daily guard holds.
	results, _ = sched.Run(ctx)
	if results[0].Outcome != OutcomeSkipped {
		t.Fatalf("expected same-day skip before bonus, got %s", results[0].Outcome)
	}

	sched.now = func() time.Time { return day.AddDate(0, 0, 1) }
	results, _ = sched.Run(ctx)
	if results[0].Outcome != OutcomeBonusPaid {
		t.Fatalf("expected bonus on next day, got %s", results[0].Outcome)
	}

	balances, _ := accounts.Balances(ctx, user.ID)
	if balances[coins.USD] != 60 {
		t.Fatalf("expected 10 daily + 50 bonus, got %f", balances[coins.USD])
	}
}
