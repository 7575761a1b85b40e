package membership

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Membership
}

// NewMemoryRepository builds an in-memory membership store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Membership)}
}

func (r *memoryRepository) Create(_ context.Context, m Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[m.ID] = m
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.storage[id]
	if !ok {
		return Membership{}, ErrNotFound
	}
	return m, nil
}

func (r *memoryRepository) FindActiveByUser(_ context.Context, userID string) (Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.storage {
		if m.UserID == userID && m.Status == StatusActive {
			return m, nil
		}
	}
	return Membership{}, ErrNotFound
}

func (r *memoryRepository) ListPayable(_ context.Context) ([]Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var memberships []Membership
	for _, m := range r.storage {
		if m.Status == StatusActive || (m.Status == StatusCompleted && !m.BonusPaid) {
			memberships = append(memberships, m)
		}
	}
	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].StartedAt.Before(memberships[j].StartedAt)
	})
	return memberships, nil
}

func (r *memoryRepository) Update(_ context.Context, m Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[m.ID]; !ok {
		return ErrNotFound
	}
	r.storage[m.ID] = m
	return nil
}
