package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinharbor/coinharbor/internal/coins"
)

var (
	// ErrNotFound indicates no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicate indicates the email or username is already taken.
	ErrDuplicate = errors.New("email or username already taken")

	// ErrInsufficientFunds occurs when a debit would take a coin balance below zero.
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// Repository persists users and their per-coin balances.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByIdentifier(ctx context.Context, identifier string) (User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, id, username, email, bio string) (User, error)
	SetActiveMembership(ctx context.Context, userID, membershipID string) error
	Balances(ctx context.Context, userID string) (map[string]float64, error)
	Credit(ctx context.Context, userID, coin string, amount float64) error
	Debit(ctx context.Context, userID, coin string, amount float64) error
	Transfer(ctx context.Context, fromID, toID, coin string, amount float64) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, username, password_hash, bio, active_membership_id, created_at`

// Create inserts a new user and seeds a zero balance row for every supported coin.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	_, err = tx.Exec(ctx, `INSERT INTO users (id, email, username, password_hash, bio, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, user.Email, user.Username, string(user.PasswordHash), user.Bio, user.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	for _, coin := range coins.All {
		if _, err := tx.Exec(ctx, `INSERT INTO balances (user_id, coin, amount) VALUES ($1, $2, 0)`, userID, coin); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// FindByIdentifier fetches a user by email or username.
func (r *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR username = $1`, identifier)
	return scanUser(row)
}

// List returns every registered user ordered by signup time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateProfile persists mutable profile fields, re-enforcing uniqueness.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, username, email, bio string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE users SET username = $2, email = $3, bio = $4 WHERE id = $1
        RETURNING `+userColumns, userID, username, email, bio)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, err
	}
	return user, nil
}

// SetActiveMembership stamps the user's active membership reference.
func (r *PostgresRepository) SetActiveMembership(ctx context.Context, userID, membershipID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrNotFound
	}
	mid, err := uuid.Parse(membershipID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET active_membership_id = $2 WHERE id = $1`, uid, mid)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Balances returns the coin balance map for a user.
func (r *PostgresRepository) Balances(ctx context.Context, userID string) (map[string]float64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT coin, amount FROM balances WHERE user_id = $1`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[string]float64, len(coins.All))
	for rows.Next() {
		var coin string
		var amount float64
		if err := rows.Scan(&coin, &amount); err != nil {
			return nil, err
		}
		balances[coin] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(balances) == 0 {
		return nil, ErrNotFound
	}
	return balances, nil
}

// Credit atomically increments a coin balance.
func (r *PostgresRepository) Credit(ctx context.Context, userID, coin string, amount float64) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE balances SET amount = amount + $3 WHERE user_id = $1 AND coin = $2`,
		uid, coin, amount)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Debit atomically decrements a coin balance. The amount >= debit guard in the
// statement closes the read-then-write race present with a plain balance check.
func (r *PostgresRepository) Debit(ctx context.Context, userID, coin string, amount float64) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE balances SET amount = amount - $3
        WHERE user_id = $1 AND coin = $2 AND amount >= $3`, uid, coin, amount)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Transfer moves funds between two users in a single database transaction.
func (r *PostgresRepository) Transfer(ctx context.Context, fromID, toID, coin string, amount float64) error {
	from, err := uuid.Parse(fromID)
	if err != nil {
		return ErrNotFound
	}
	to, err := uuid.Parse(toID)
	if err != nil {
		return ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE balances SET amount = amount - $3
        WHERE user_id = $1 AND coin = $2 AND amount >= $3`, from, coin, amount)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}

	cmd, err = tx.Exec(ctx, `UPDATE balances SET amount = amount + $3 WHERE user_id = $1 AND coin = $2`,
		to, coin, amount)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		user         User
		id           uuid.UUID
		passwordHash string
		membershipID *uuid.UUID
		createdAt    time.Time
	)
	if err := row.Scan(&id, &user.Email, &user.Username, &passwordHash, &user.Bio, &membershipID, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.PasswordHash = []byte(passwordHash)
	if membershipID != nil {
		user.ActiveMembershipID = membershipID.String()
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
