package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"invoicing-edge/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Revocations is the logout denylist keyed by token jti, for access and refresh tokens alike.
// Entries only need to live until the token would have expired anyway.
type Revocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type RedisRevocations struct {
	rdb   *redis.Client
	clock func() time.Time
}

func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{rdb: rdb, clock: time.Now}
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return errors.New("auth: jti required")
	}
	ttl := until.Sub(r.clock())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, utils.RedisKey("auth", "revoked", jti), "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, utils.RedisKey("auth", "revoked", jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevocations is an in-process denylist for tests and local runs.
type MemoryRevocations struct {
	mu    sync.Mutex
	until map[string]time.Time
	clock func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{until: map[string]time.Time{}, clock: time.Now}
}

func (m *MemoryRevocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return errors.New("auth: jti required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until[jti] = until
	return nil
}

func (m *MemoryRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.until[jti]
	if !ok {
		return false, nil
	}
	if !until.After(m.clock()) {
		delete(m.until, jti)
		return false, nil
	}
	return true, nil
}
