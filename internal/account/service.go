package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// ErrBadCredentials occurs when the identifier/password pair does not match a user.
var ErrBadCredentials = errors.New("invalid credentials")

// Service manages account lifecycle and credential checks.
type Service struct {
	repo Repository
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures data required to open an account.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Register creates a new user with a hashed password and zeroed balances.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	if username == "" {
		return User{}, errors.New("username is required")
	}
	if len(input.Password) < minPasswordLength {
		return User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies an email-or-username identifier and password pair.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (User, error) {
	user, err := s.repo.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrBadCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrBadCredentials
	}

	return user, nil
}

// Get retrieves a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Balances returns the per-coin balance map for a user.
func (s *Service) Balances(ctx context.Context, id string) (map[string]float64, error) {
	return s.repo.Balances(ctx, id)
}

// ProfileUpdate holds optional replacement values for mutable profile fields.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Bio      *string
}

// UpdateProfile applies the provided fields, re-validating email and username uniqueness.
func (s *Service) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	username := current.Username
	if update.Username != nil {
		username = strings.TrimSpace(*update.Username)
		if username == "" {
			return User{}, errors.New("username is required")
		}
	}

	email := current.Email
	if update.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*update.Email))
		if err := validateEmail(email); err != nil {
			return User{}, err
		}
	}

	bio := current.Bio
	if update.Bio != nil {
		bio = *update.Bio
	}

	return s.repo.UpdateProfile(ctx, id, username, email, bio)
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return errors.New("email is invalid")
	}
	return nil
}
