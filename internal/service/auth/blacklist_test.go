package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlacklist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("revoked token is reported", func(t *testing.T) {
		t.Parallel()
		bl := NewMemoryBlacklist()

		require.NoError(t, bl.Revoke(ctx, "token-1", time.Hour))

		revoked, err := bl.IsRevoked(ctx, "token-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("unknown token is not revoked", func(t *testing.T) {
		t.Parallel()
		bl := NewMemoryBlacklist()

		revoked, err := bl.IsRevoked(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("entries expire with their ttl", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		bl := NewMemoryBlacklist()
		bl.timeFunc = func() time.Time { return now }

		require.NoError(t, bl.Revoke(ctx, "token-2", 10*time.Minute))

		revoked, err := bl.IsRevoked(ctx, "token-2")
		require.NoError(t, err)
		assert.True(t, revoked)

		now = now.Add(11 * time.Minute)
		revoked, err = bl.IsRevoked(ctx, "token-2")
		require.NoError(t, err)
		assert.False(t, revoked, "entry must lapse once the token itself has expired")
	})

	t.Run("non-positive ttl is a no-op", func(t *testing.T) {
		t.Parallel()
		bl := NewMemoryBlacklist()

		require.NoError(t, bl.Revoke(ctx, "token-3", 0))
		require.NoError(t, bl.Revoke(ctx, "token-4", -time.Minute))

		revoked, err := bl.IsRevoked(ctx, "token-3")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
