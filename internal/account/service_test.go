package account

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Email: "Alice@Example.com", Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}

	balances, err := svc.Balances(ctx, user.ID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	for coin, amount := range balances {
		if amount != 0 {
			t.Fatalf("expected zero %s balance on signup, got %f", coin, amount)
		}
	}

	if _, err := svc.Authenticate(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("authenticate by username: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice@example.com", "secret1"); err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice", "wrong-pass"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected bad credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "secret1"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected bad credentials for unknown user, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "not-an-email", Username: "bob", Password: "secret1"}); err == nil {
		t.Fatalf("expected invalid email error")
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "bob@example.com", Username: "", Password: "secret1"}); err == nil {
		t.Fatalf("expected missing username error")
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "bob@example.com", Username: "bob", Password: "tiny"}); err == nil {
		t.Fatalf("expected short password error")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "carol@example.com", Username: "carol", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Register(ctx, RegisterInput{Email: "carol@example.com", Username: "other", Password: "secret1"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "other@example.com", Username: "carol", Password: "secret1"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "dave@example.com", Username: "dave", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Email: "erin@example.com", Username: "erin", Password: "secret1"}); err != nil {
		t.Fatalf("register second user: %v", err)
	}

	bio := "trader"
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("update bio: %v", err)
	}
	if updated.Bio != "trader" || updated.Username != "dave" {
		t.Fatalf("unexpected profile after update: %+v", updated)
	}

	taken := "erin"
	if _, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Username: &taken}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate username on update, got %v", err)
	}
}
