package results

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr, store := setupRedisStore(t, time.Minute)

	require.NoError(t, store.Put(ctx, "a", NewRecord("a")))
	assert.True(t, mr.Exists("testpilot:run:a"))
	assert.Equal(t, time.Minute, mr.TTL("testpilot:run:a"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	mr, base := setupRedisStore(t, time.Minute)
	store := NewRedisStore(base.client, time.Minute, base.logger, WithKeyPrefix("custom:"))

	require.NoError(t, store.Put(ctx, "a", NewRecord("a")))
	assert.True(t, mr.Exists("custom:a"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	mr, store := setupRedisStore(t, time.Minute)

	require.NoError(t, mr.Set("testpilot:run:bad", "{not json"))
	_, err := store.Get(ctx, "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
