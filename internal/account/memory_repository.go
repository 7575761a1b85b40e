package account

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/coinharbor/coinharbor/internal/coins"
)

type memoryRepository struct {
	mu       sync.RWMutex
	users    map[string]User
	balances map[string]map[string]float64
}

// NewMemoryRepository builds an in-memory account store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:    make(map[string]User),
		balances: make(map[string]map[string]float64),
	}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) || strings.EqualFold(existing.Username, user.Username) {
			return ErrDuplicate
		}
	}
	r.users[user.ID] = user
	seeded := make(map[string]float64, len(coins.All))
	for _, coin := range coins.All {
		seeded[coin] = 0
	}
	r.balances[user.ID] = seeded
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByIdentifier(_ context.Context, identifier string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, identifier) || strings.EqualFold(user.Username, identifier) {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *memoryRepository) UpdateProfile(_ context.Context, id, username, email, bio string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	for otherID, other := range r.users {
		if otherID == id {
			continue
		}
		if strings.EqualFold(other.Email, email) || strings.EqualFold(other.Username, username) {
			return User{}, ErrDuplicate
		}
	}
	user.Username = username
	user.Email = email
	user.Bio = bio
	r.users[id] = user
	return user, nil
}

func (r *memoryRepository) SetActiveMembership(_ context.Context, userID, membershipID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.ActiveMembershipID = membershipID
	r.users[userID] = user
	return nil
}

func (r *memoryRepository) Balances(_ context.Context, userID string) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	balances, ok := r.balances[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[string]float64, len(balances))
	for coin, amount := range balances {
		out[coin] = amount
	}
	return out, nil
}

func (r *memoryRepository) Credit(_ context.Context, userID, coin string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	balances, ok := r.balances[userID]
	if !ok {
		return ErrNotFound
	}
	balances[coin] += amount
	return nil
}

func (r *memoryRepository) Debit(_ context.Context, userID, coin string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	balances, ok := r.balances[userID]
	if !ok {
		return ErrNotFound
	}
	if balances[coin] < amount {
		return ErrInsufficientFunds
	}
	balances[coin] -= amount
	return nil
}

func (r *memoryRepository) Transfer(_ context.Context, fromID, toID, coin string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fromBalances, ok := r.balances[fromID]
	if !ok {
		return ErrNotFound
	}
	toBalances, ok := r.balances[toID]
	if !ok {
		return ErrNotFound
	}
	if fromBalances[coin] < amount {
		return ErrInsufficientFunds
	}
	fromBalances[coin] -= amount
	toBalances[coin] += amount
	return nil
}
