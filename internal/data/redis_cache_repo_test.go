package data

import (
	"context"
	"testing"
	"time"

	"github.com/narrativewatch/triage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRepo_Claims(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		key := "claim:quick:post-1"

		ok, err := repo.SetIfNotExists(ctx, key, []byte("run-a"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.SetIfNotExists(ctx, key, []byte("run-b"), time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.Equal(t, "run-a", client.Get(ctx, key).Val())
		ttl := client.TTL(ctx, key).Val()
		assert.True(t, ttl > 0 && ttl <= time.Minute)
	})

	t.Run("non-positive ttl still expires", func(t *testing.T) {
		key := "claim:deep:post-2"
		ok, err := repo.SetIfNotExists(ctx, key, []byte("x"), 0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, client.TTL(ctx, key).Val() > 0)
	})

	t.Run("delete releases claim", func(t *testing.T) {
		key := "claim:deepest:post-3"
		_, err := repo.SetIfNotExists(ctx, key, []byte("x"), time.Minute)
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, err := repo.SetIfNotExists(ctx, "", []byte("x"), time.Minute)
		require.Error(t, err)
		_, err = repo.Delete(ctx, "")
		require.Error(t, err)
	})

	t.Run("health", func(t *testing.T) {
		require.NoError(t, repo.Health(ctx))
	})
}
