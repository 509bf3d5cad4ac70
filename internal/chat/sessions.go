package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultSessionTTL = 15 * time.Minute

// Session states tracked between chat turns.
const (
	SessionAwaitingBroadcast = "awaiting_broadcast"
)

// sessionRedis defines the operations the session store uses.
type sessionRedis interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(chatID string) string
}

// SessionStore keeps short-lived per-chat conversation state in Redis.
// State expires on its own; a dropped conversation simply resets.
type SessionStore struct {
	client sessionRedis
	ttl    time.Duration
}

// NewSessionStore builds a Redis-backed session store.
func NewSessionStore(client sessionRedis, ttl time.Duration) (*SessionStore, error) {
	if client == nil {
		return nil, errors.New("redis client required for sessions")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}, nil
}

// Set records the chat's pending state.
func (s *SessionStore) Set(ctx context.Context, chatID int64, state string) error {
	if err := s.client.Set(ctx, s.key(chatID), state, s.ttl); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Get returns the chat's pending state, or empty when none is set.
func (s *SessionStore) Get(ctx context.Context, chatID int64) (string, error) {
	value, err := s.client.Get(ctx, s.key(chatID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	return value, nil
}

// Clear drops the chat's pending state.
func (s *SessionStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, s.key(chatID)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(chatID int64) string {
	return s.client.SessionKey(strconv.FormatInt(chatID, 10))
}
