package verification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"invoicing-edge/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// TokenStore holds pending verification tokens. Implementations store only a
// digest of the token, and Consume is single-use: a token can be redeemed once.
type TokenStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume returns the user the token was issued for and deletes it.
	// Unknown or expired tokens return ErrInvalidToken.
	Consume(ctx context.Context, token string) (string, error)
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func tokenKey(token string) string {
	return utils.RedisKey("verify", digest(token))
}

func (s *RedisStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, tokenKey(token), userID, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// MemoryStore is an in-process TokenStore for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

type memoryEntry struct {
	userID  string
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, clock: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[digest(token)] = memoryEntry{userID: userID, expires: s.clock().Add(ttl)}
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := digest(token)
	e, ok := s.entries[k]
	if !ok {
		return "", ErrInvalidToken
	}
	delete(s.entries, k)
	if !e.expires.After(s.clock()) {
		return "", ErrInvalidToken
	}
	return e.userID, nil
}
