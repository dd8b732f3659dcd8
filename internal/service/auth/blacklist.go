package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist records revoked refresh-token IDs until their natural
// expiry. Revocation is best-effort: entries must be visible within the
// revoking call, but cross-replica visibility may lag.
type TokenBlacklist interface {
	// Revoke adds a token ID to the blacklist with the given time-to-live.
	// A TTL at or below zero is a no-op since the token is already expired.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether the token ID is on the blacklist.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const blacklistKeyPrefix = "taskhub:revoked:"

// RedisBlacklist implements TokenBlacklist on Redis, using key TTLs so
// entries expire with the tokens they revoke.
type RedisBlacklist struct {
	client *redis.Client
}

// NewRedisBlacklist creates a TokenBlacklist backed by the given Redis client.
func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

var _ TokenBlacklist = (*RedisBlacklist)(nil)

// Revoke implements TokenBlacklist.Revoke
func (b *RedisBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked implements TokenBlacklist.IsRevoked
func (b *RedisBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryBlacklist is an in-process TokenBlacklist for single-node
// deployments and tests. Expired entries are pruned lazily on access.
type MemoryBlacklist struct {
	mu       sync.Mutex
	entries  map[string]time.Time
	timeFunc func() time.Time
}

// NewMemoryBlacklist creates an empty in-memory blacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries:  make(map[string]time.Time),
		timeFunc: time.Now,
	}
}

var _ TokenBlacklist = (*MemoryBlacklist)(nil)

// Revoke implements TokenBlacklist.Revoke
func (b *MemoryBlacklist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune()
	b.entries[tokenID] = b.timeFunc().Add(ttl)
	return nil
}

// IsRevoked implements TokenBlacklist.IsRevoked
func (b *MemoryBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiry, ok := b.entries[tokenID]
	if !ok {
		return false, nil
	}
	if b.timeFunc().After(expiry) {
		delete(b.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// prune removes expired entries. Caller must hold the lock.
func (b *MemoryBlacklist) prune() {
	now := b.timeFunc()
	for id, expiry := range b.entries {
		if now.After(expiry) {
			delete(b.entries, id)
		}
	}
}
