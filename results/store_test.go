package results

import (
	"context"
	"testing"

	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Lifecycle(t *testing.T) {
	r := NewRecord("s1")
	assert.Equal(t, StatusPending, r.Status)
	assert.Zero(t, r.Duration())

	assert.ErrorIs(t, r.Complete(nil), ErrRunNotRunning)

	require.NoError(t, r.Start())
	assert.Equal(t, StatusRunning, r.Status)
	assert.NotNil(t, r.StartedAt)
	assert.ErrorIs(t, r.Start(), ErrRunAlreadyStarted)

	result := &testrun.TestResult{ID: "s1", Success: true}
	require.NoError(t, r.Complete(result))
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Same(t, result, r.Result)
	assert.NotNil(t, r.CompletedAt)
	assert.GreaterOrEqual(t, r.Duration().Nanoseconds(), int64(0))
}

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status Status
		valid  bool
	}{
		{StatusPending, true},
		{StatusRunning, true},
		{StatusCompleted, true},
		{Status("done"), false},
		{Status(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.IsValid())
		})
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("missing record", func(t *testing.T) {
				_, err := store.Get(ctx, "absent")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("pending then completed", func(t *testing.T) {
				r := NewRecord("run-1")
				require.NoError(t, store.Put(ctx, "run-1", r))

				got, err := store.Get(ctx, "run-1")
				require.NoError(t, err)
				assert.Equal(t, StatusPending, got.Status)
				assert.Nil(t, got.Result)

				require.NoError(t, r.Start())
				require.NoError(t, store.Put(ctx, "run-1", r))
				require.NoError(t, r.Complete(&testrun.TestResult{
					ID:          "run-1",
					PlanID:      "plan-1",
					Success:     false,
					Error:       "Element Not Found: #go",
					Steps:       []testrun.StepResult{{StepNumber: 1, Success: false, Error: "boom"}},
					Screenshots: []string{"screenshots/run-1/error.png"},
				}))
				require.NoError(t, store.Put(ctx, "run-1", r))

				got, err = store.Get(ctx, "run-1")
				require.NoError(t, err)
				assert.Equal(t, StatusCompleted, got.Status)
				require.NotNil(t, got.Result)
				assert.Equal(t, "plan-1", got.Result.PlanID)
				assert.Equal(t, "Element Not Found: #go", got.Result.Error)
				require.Len(t, got.Result.Steps, 1)
				assert.Equal(t, "boom", got.Result.Steps[0].Error)
				assert.Equal(t, []string{"screenshots/run-1/error.png"}, got.Result.Screenshots)
				assert.NotNil(t, got.StartedAt)
				assert.NotNil(t, got.CompletedAt)
			})

			t.Run("session id defaults from key", func(t *testing.T) {
				r := &Record{Status: StatusRunning}
				require.NoError(t, store.Put(ctx, "run-2", r))

				got, err := store.Get(ctx, "run-2")
				require.NoError(t, err)
				assert.Equal(t, "run-2", got.SessionID)
			})

			t.Run("rejects invalid records", func(t *testing.T) {
				assert.ErrorIs(t, store.Put(ctx, "x", nil), ErrNilRecord)
				assert.ErrorIs(t, store.Put(ctx, "x", NewRecord("y")), ErrInvalidSessionID)
				assert.ErrorIs(t, store.Put(ctx, "x", &Record{Status: "done"}), ErrInvalidStatus)
			})
		})
	}
}
