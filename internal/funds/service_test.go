package funds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coinharbor/coinharbor/internal/account"
	"github.com/coinharbor/coinharbor/internal/coins"
	"github.com/coinharbor/coinharbor/internal/ledger"
)

func newTestUser(t *testing.T, repo account.Repository, username string) account.User {
	t.Helper()
	user := account.User{
		ID:        uuid.NewString(),
		Email:     username + "@example.com",
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func TestDepositCreatesPendingTransaction(t *testing.T) {
	accounts := account.NewMemoryRepository()
	ledgerRepo := ledger.NewMemoryRepository()
	svc := NewService(accounts, ledgerRepo)

	ctx := context.Background()
	user := newTestUser(t, accounts, "alice")

	tx, err := svc.Deposit(ctx, user.ID, "btc", 1.5, "")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if tx.Status != ledger.StatusPending || tx.Kind != ledger.KindDeposit {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.Coin != coins.BTC {
		t.Fatalf("expected normalized coin BTC, got %s", tx.Coin)
	}

	balances, _ := accounts.Balances(ctx, user.ID)
	if balances[coins.BTC] != 0 {
		t.Fatalf("deposit must not credit before approval, got %f", balances[coins.BTC])
	}
}

func TestDepositValidation(t *testing.T) {
	accounts := account.NewMemoryRepository()
	svc := NewService(accounts, ledger.NewMemoryRepository())
	ctx := context.Background()
	user := newTestUser(t, accounts, "bob")

	if _, err := svc.Deposit(ctx, user.ID, "DOGE", 1, ""); !errors.Is(err, ErrUnsupportedCoin) {
		t.Fatalf("expected unsupported coin, got %v", err)
	}
	if _, err := svc.Deposit(ctx, user.ID, "BTC", 0, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := svc.Deposit(ctx, uuid.NewString(), "BTC", 1, ""); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestDepositTagsMembershipTier(t *testing.T) {
	accounts := account.NewMemoryRepository()
	ledgerRepo := ledger.NewMemoryRepository()
	svc := NewService(accounts, ledgerRepo)
	ctx := context.Background()
	user := newTestUser(t, accounts, "carol")

	tx, err := svc.Deposit(ctx, user.ID, "USDT", 100, "V1")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if tx.Metadata[ledger.MetaTier] != "V1" {
		t.Fatalf("expected tier tag in metadata, got %+v", tx.Metadata)
	}
}

func TestWithdrawInsufficientBalanceCreatesNoTransaction(t *testing.T) {
	accounts := account.NewMemoryRepository()
	ledgerRepo := ledger.NewMemoryRepository()
	svc := NewService(accounts, ledgerRepo)

	ctx := context.Background()
	user := newTestUser(t, accounts, "dave")
	if err := accounts.Credit(ctx, user.ID, coins.USDT, 100); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	if _, err := svc.Withdraw(ctx, user.ID, "USDT", 150, "addr-1"); !errors.Is(err, account.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	txs, _ := ledgerRepo.ListByUser(ctx, user.ID)
	if len(txs) != 0 {
		t.Fatalf("expected no transaction rows, got %d", len(txs))
	}
	balances, _ := accounts.Balances(ctx, user.ID)
	if balances[coins.USDT] != 100 {
		t.Fatalf("expected balance unchanged at 100, got %f", balances[coins.USDT])
	}
}

func TestWithdrawCreatesPendingWithoutDebiting(t *testing.T) {
	accounts := account.NewMemoryRepository()
	ledgerRepo := ledger.NewMemoryRepository()
	svc := NewService(accounts, ledgerRepo)

	ctx := context.Background()
	user := newTestUser(t, accounts, "erin")
	if err := accounts.Credit(ctx, user.ID, coins.ETH, 5); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	tx, err := svc.Withdraw(ctx, user.ID, "ETH", 2, "0xdest")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if tx.Status != ledger.StatusPending {
		t.Fatalf("expected pending withdrawal, got %s", tx.Status)
	}
	if tx.Metadata[ledger.MetaAddress] != "0xdest" {
		t.Fatalf("expected destination address in metadata, got %+v", tx.Metadata)
	}

	balances, _ := accounts.Balances(ctx, user.ID)
	if balances[coins.ETH] != 5 {
		t.Fatalf("balance must not move before approval, got %f", balances[coins.ETH])
	}
}

func TestTransferMovesBalancesAndLinksRecords(t *testing.T) {
	accounts := account.NewMemoryRepository()
	ledgerRepo := ledger.NewMemoryRepository()
	svc := NewService(accounts, ledgerRepo)

	ctx := context.Background()
	sender := newTestUser(t, accounts, "frank")
	recipient := newTestUser(t, accounts, "grace")
	if err := accounts.Credit(ctx, sender.ID, coins.BNB, 10); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	result, err := svc.Transfer(ctx, sender.ID, "grace", "BNB", 4)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	senderBalances, _ := accounts.Balances(ctx, sender.ID)
	recipientBalances, _ := accounts.Balances(ctx, recipient.ID)
	if senderBalances[coins.BNB] != 6 || recipientBalances[coins.BNB] != 4 {
		t.Fatalf("unexpected balances after transfer: sender=%f recipient=%f",
			senderBalances[coins.BNB], recipientBalances[coins.BNB])
	}

	sent, err := ledgerRepo.Get(ctx, result.SentTxID)
	if err != nil {
		t.Fatalf("get sent record: %v", err)
	}
	received, err := ledgerRepo.Get(ctx, result.ReceivedTxID)
	if err != nil {
		t.Fatalf("get received record: %v", err)
	}

	if sent.Metadata[ledger.MetaDirection] != ledger.DirectionSent ||
		received.Metadata[ledger.MetaDirection] != ledger.DirectionReceived {
		t.Fatalf("unexpected directions: %s / %s",
			sent.Metadata[ledger.MetaDirection], received.Metadata[ledger.MetaDirection])
	}
	if sent.Metadata[ledger.MetaLinkID] == "" || sent.Metadata[ledger.MetaLinkID] != received.Metadata[ledger.MetaLinkID] {
		t.Fatalf("expected both records to share a link id")
	}
	if sent.Status != ledger.StatusConfirmed || received.Status != ledger.StatusConfirmed {
		t.Fatalf("transfer records must settle immediately")
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	accounts := account.NewMemoryRepository()
	svc := NewService(accounts, ledger.NewMemoryRepository())

	ctx := context.Background()
	sender := newTestUser(t, accounts, "henry")
	newTestUser(t, accounts, "iris")

	if _, err := svc.Transfer(ctx, sender.ID, "iris", "ADA", 1); !errors.Is(err, account.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestTransferUnknownRecipient(t *testing.T) {
	accounts := account.NewMemoryRepository()
	svc := NewService(accounts, ledger.NewMemoryRepository())

	ctx := context.Background()
	sender := newTestUser(t, accounts, "jack")

	if _, err := svc.Transfer(ctx, sender.ID, "nobody", "BTC", 1); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected recipient not found, got %v", err)
	}
}

func TestTransferToSelfRejected(t *testing.T) {
	accounts := account.NewMemoryRepository()
	svc := NewService(accounts, ledger.NewMemoryRepository())

	ctx := context.Background()
	sender := newTestUser(t, accounts, "kate")

	if _, err := svc.Transfer(ctx, sender.ID, "kate", "BTC", 1); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected self transfer rejection, got %v", err)
	}
}
