package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the cookie carrying the opaque session identifier.
	CookieName = "session_id"

	keyPrefix = "session:v1:"
)

// ErrNoSession indicates the session id is unknown or expired.
var ErrNoSession = errors.New("session not found")

// Store persists server-side sessions keyed by an opaque identifier.
type Store interface {
	Create(ctx context.Context, userID string) (string, error)
	UserID(ctx context.Context, sessionID string) (string, error)
	Destroy(ctx context.Context, sessionID string) error
}

// RedisStore keeps sessions in Redis with a sliding-free fixed TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create issues a fresh session for the user and returns its identifier.
func (s *RedisStore) Create(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, keyPrefix+id, userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// UserID resolves a session identifier back to the owning user.
func (s *RedisStore) UserID(ctx context.Context, sessionID string) (string, error) {
	userID, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoSession
		}
		return "", err
	}
	return userID, nil
}

// Destroy removes the session.
func (s *RedisStore) Destroy(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}
