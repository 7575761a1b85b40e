package membership

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists memberships.
type Repository interface {
	Create(ctx context.Context, m Membership) error
	Get(ctx context.Context, id string) (Membership, error)
	FindActiveByUser(ctx context.Context, userID string) (Membership, error)
	// ListPayable returns memberships the scheduler still owes money to:
	// active ones, plus completed ones whose bonus has not been paid yet.
	ListPayable(ctx context.Context) ([]Membership, error)
	Update(ctx context.Context, m Membership) error
}

// PostgresRepository stores memberships in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed membership repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const membershipColumns = `id, user_id, tier, status, started_at, duration_days, days_paid, daily_amount, bonus_amount, bonus_paid, last_payout`

// Create inserts a membership record.
func (r *PostgresRepository) Create(ctx context.Context, m Membership) error {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(m.UserID)
	if err != nil {
		return err
	}
	var lastPayout *time.Time
	if !m.LastPayout.IsZero() {
		t := m.LastPayout.UTC()
		lastPayout = &t
	}
	_, err = r.db.Exec(ctx, `INSERT INTO memberships
        (id, user_id, tier, status, started_at, duration_days, days_paid, daily_amount, bonus_amount, bonus_paid, last_payout)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, userID, m.Tier, m.Status, m.StartedAt.UTC(), m.DurationDays, m.DaysPaid,
		m.DailyAmount, m.BonusAmount, m.BonusPaid, lastPayout)
	return err
}

// Get fetches a membership by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Membership, error) {
	mid, err := uuid.Parse(id)
	if err != nil {
		return Membership{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, mid)
	return scanMembership(row)
}

// FindActiveByUser returns the user's active membership, if any.
func (r *PostgresRepository) FindActiveByUser(ctx context.Context, userID string) (Membership, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Membership{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+membershipColumns+` FROM memberships
        WHERE user_id = $1 AND status = $2 ORDER BY started_at DESC LIMIT 1`, uid, StatusActive)
	return scanMembership(row)
}

// ListPayable returns memberships still owed a daily payout or bonus.
func (r *PostgresRepository) ListPayable(ctx context.Context) ([]Membership, error) {
	rows, err := r.db.Query(ctx, `SELECT `+membershipColumns+` FROM memberships
        WHERE status = $1 OR (status = $2 AND NOT bonus_paid) ORDER BY started_at`,
		StatusActive, StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// Update persists mutable payout-tracking fields.
func (r *PostgresRepository) Update(ctx context.Context, m Membership) error {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return ErrNotFound
	}
	var lastPayout *time.Time
	if !m.LastPayout.IsZero() {
		t := m.LastPayout.UTC()
		lastPayout = &t
	}
	cmd, err := r.db.Exec(ctx, `UPDATE memberships
        SET status = $2, days_paid = $3, bonus_paid = $4, last_payout = $5 WHERE id = $1`,
		id, m.Status, m.DaysPaid, m.BonusPaid, lastPayout)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (Membership, error) {
	var (
		m          Membership
		id         uuid.UUID
		userID     uuid.UUID
		startedAt  time.Time
		lastPayout *time.Time
	)
	if err := row.Scan(&id, &userID, &m.Tier, &m.Status, &startedAt, &m.DurationDays,
		&m.DaysPaid, &m.DailyAmount, &m.BonusAmount, &m.BonusPaid, &lastPayout); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrNotFound
		}
		return Membership{}, err
	}
	m.ID = id.String()
	m.UserID = userID.String()
	m.StartedAt = startedAt.UTC()
	if lastPayout != nil {
		m.LastPayout = lastPayout.UTC()
	}
	return m, nil
}
