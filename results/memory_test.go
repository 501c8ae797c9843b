package results

import (
	"context"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2, time.Hour)

	require.NoError(t, store.Put(ctx, "a", NewRecord("a")))
	require.NoError(t, store.Put(ctx, "b", NewRecord("b")))
	_, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "c", NewRecord("c")))

	assert.Equal(t, 2, store.Len())
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryStore_Expires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 20*time.Millisecond)

	require.NoError(t, store.Put(ctx, "a", NewRecord("a")))
	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "a")
		return err == ErrNotFound
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, 0)

	r := NewRecord("a")
	require.NoError(t, r.Start())
	require.NoError(t, r.Complete(&testrun.TestResult{ID: "a", Analysis: "original"}))
	require.NoError(t, store.Put(ctx, "a", r))
	r.Result.Analysis = "changed after put"

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	got.Result.Analysis = "changed after get"

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Result.Analysis)
}
