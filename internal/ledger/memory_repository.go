package ledger

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Transaction
}

// NewMemoryRepository builds an in-memory ledger for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Transaction)}
}

func (r *memoryRepository) Create(_ context.Context, tx Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.Metadata == nil {
		tx.Metadata = map[string]string{}
	}
	r.storage[tx.ID] = tx
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.storage[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return copyTransaction(tx), nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var txs []Transaction
	for _, tx := range r.storage {
		if tx.UserID == userID {
			txs = append(txs, copyTransaction(tx))
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, nil
}

func (r *memoryRepository) ListByStatusKind(_ context.Context, status Status, kind Kind) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var txs []Transaction
	for _, tx := range r.storage {
		if tx.Status == status && tx.Kind == kind {
			txs = append(txs, copyTransaction(tx))
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
	return txs, nil
}

func (r *memoryRepository) Settle(_ context.Context, id string, from, to Status, meta map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	if tx.Status != from {
		return ErrAlreadySettled
	}
	tx.Status = to
	for k, v := range meta {
		tx.Metadata[k] = v
	}
	r.storage[id] = tx
	return nil
}

func copyTransaction(tx Transaction) Transaction {
	meta := make(map[string]string, len(tx.Metadata))
	for k, v := range tx.Metadata {
		meta[k] = v
	}
	tx.Metadata = meta
	return tx
}
