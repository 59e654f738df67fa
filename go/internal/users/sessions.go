package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is how long an issued login stays valid
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionStore maps opaque login tokens to user ids
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (token string, expiresAt time.Time, err error)
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
}

// RedisSessionStore keeps each token as a key with an expiry
type RedisSessionStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, prefix: "presence:session:"}
}

func (s *RedisSessionStore) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, s.prefix+token, userID.String(), ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store session: %w", err)
	}
	return token, time.Now().Add(ttl), nil
}

func (s *RedisSessionStore) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrUnauthenticated
	}
	v, err := s.rdb.Get(ctx, s.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrUnauthenticated
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return id, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, s.prefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps sessions in process. Expired tokens are dropped
// when they are next looked up.
type MemorySessionStore struct {
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func NewMemorySessionStore(clock clockwork.Clock) *MemorySessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemorySessionStore{clock: clock, sessions: map[string]memorySession{}}
}

func (s *MemorySessionStore) Create(_ context.Context, userID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	token := uuid.NewString()
	expiresAt := s.clock.Now().Add(ttl)
	s.mu.Lock()
	s.sessions[token] = memorySession{userID: userID, expiresAt: expiresAt}
	s.mu.Unlock()
	return token, expiresAt, nil
}

func (s *MemorySessionStore) Resolve(_ context.Context, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return uuid.Nil, ErrUnauthenticated
	}
	if !s.clock.Now().Before(sess.expiresAt) {
		delete(s.sessions, token)
		return uuid.Nil, ErrUnauthenticated
	}
	return sess.userID, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}
