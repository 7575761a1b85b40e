package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists ledger transactions.
type Repository interface {
	Create(ctx context.Context, tx Transaction) error
	Get(ctx context.Context, id string) (Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]Transaction, error)
	ListByStatusKind(ctx context.Context, status Status, kind Kind) ([]Transaction, error)
	// Settle transitions a transaction from one status to another, merging
	// the provided metadata. The transition is conditional on the current
	// status so two racing settlements cannot both succeed.
	Settle(ctx context.Context, id string, from, to Status, meta map[string]string) error
}

// PostgresRepository stores transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed ledger repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const txColumns = `id, user_id, kind, coin, amount, status, metadata, created_at`

// Create inserts a transaction record.
func (r *PostgresRepository) Create(ctx context.Context, tx Transaction) error {
	txID, err := uuid.Parse(tx.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(tx.UserID)
	if err != nil {
		return err
	}
	meta := tx.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	_, err = r.db.Exec(ctx, `INSERT INTO transactions (id, user_id, kind, coin, amount, status, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txID, userID, string(tx.Kind), tx.Coin, tx.Amount, string(tx.Status), meta, tx.CreatedAt.UTC())
	return err
}

// Get fetches a transaction by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, txID)
	return scanTransaction(row)
}

// ListByUser returns a user's transactions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Transaction, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT `+txColumns+` FROM transactions
        WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListByStatusKind returns transactions matching a status/kind pair, oldest first.
func (r *PostgresRepository) ListByStatusKind(ctx context.Context, status Status, kind Kind) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+txColumns+` FROM transactions
        WHERE status = $1 AND kind = $2 ORDER BY created_at`, string(status), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// Settle applies a conditional status transition, merging metadata.
func (r *PostgresRepository) Settle(ctx context.Context, id string, from, to Status, meta map[string]string) error {
	txID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	if meta == nil {
		meta = map[string]string{}
	}
	cmd, err := r.db.Exec(ctx, `UPDATE transactions SET status = $3, metadata = metadata || $4
        WHERE id = $1 AND status = $2`, txID, string(from), string(to), meta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrAlreadySettled
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		tx        Transaction
		id        uuid.UUID
		userID    uuid.UUID
		kind      string
		status    string
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &kind, &tx.Coin, &tx.Amount, &status, &tx.Metadata, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	tx.ID = id.String()
	tx.UserID = userID.String()
	tx.Kind = Kind(kind)
	tx.Status = Status(status)
	tx.CreatedAt = createdAt.UTC()
	return tx, nil
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	var txs []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
