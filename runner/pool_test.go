package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/results"
	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, req testrun.Request) (*testrun.TestResult, error)

func (f runnerFunc) Run(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
	return f(ctx, req)
}

type countingRecorder struct {
	started, finished, rejected atomic.Int32
}

func (r *countingRecorder) RunStarted()  { r.started.Add(1) }
func (r *countingRecorder) RunFinished() { r.finished.Add(1) }
func (r *countingRecorder) RunRejected() { r.rejected.Add(1) }

func request(id string) testrun.Request {
	return testrun.Request{Instruction: "open the page", URL: "https://example.com", SessionID: id}
}

func waitCompleted(t *testing.T, store results.Store, id string) *results.Record {
	t.Helper()
	var rec *results.Record
	require.Eventually(t, func() bool {
		r, err := store.Get(context.Background(), id)
		if err != nil || r.Status != results.StatusCompleted {
			return false
		}
		rec = r
		return true
	}, 2*time.Second, 5*time.Millisecond)
	return rec
}

func TestPool_RunsAndRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := results.NewMemoryStore(10, time.Hour)
	release := make(chan struct{})
	pool := NewPool(1, 4, runnerFunc(func(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
		<-release
		return &testrun.TestResult{ID: req.SessionID, Success: true}, nil
	}), store, logger.NewTestLogger())
	pool.Start(ctx)

	id, err := pool.Submit(ctx, request("s1"))
	require.NoError(t, err)
	assert.Equal(t, "s1", id)

	require.Eventually(t, func() bool {
		r, err := store.Get(ctx, "s1")
		return err == nil && r.Status == results.StatusRunning
	}, time.Second, 5*time.Millisecond)

	close(release)
	rec := waitCompleted(t, store, "s1")
	require.NotNil(t, rec.Result)
	assert.True(t, rec.Result.Success)
	assert.NotNil(t, rec.StartedAt)
}

func TestPool_AssignsSessionID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := results.NewMemoryStore(10, time.Hour)
	pool := NewPool(1, 1, runnerFunc(func(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
		return &testrun.TestResult{ID: req.SessionID, Success: true}, nil
	}), store, logger.NewTestLogger())
	pool.Start(ctx)

	id, err := pool.Submit(ctx, testrun.Request{Instruction: "x", URL: "https://example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	waitCompleted(t, store, id)
}

func TestPool_FailuresBecomeResults(t *testing.T) {
	tests := []struct {
		name    string
		run     runnerFunc
		wantID  string
		wantErr string
	}{
		{
			name: "planning error",
			run: func(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
				return nil, errors.New("planning failed: model unavailable")
			},
			wantID:  "error_s1",
			wantErr: "planning failed: model unavailable",
		},
		{
			name: "panic",
			run: func(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
				panic("boom")
			},
			wantID:  "error_s1",
			wantErr: "run panicked: boom",
		},
		{
			name: "nil result",
			run: func(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
				return nil, nil
			},
			wantID:  "error_no_result",
			wantErr: testrun.NoResultError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			store := results.NewMemoryStore(10, time.Hour)
			log := logger.NewTestLogger()
			pool := NewPool(1, 1, tt.run, store, log)
			pool.Start(ctx)

			_, err := pool.Submit(ctx, request("s1"))
			require.NoError(t, err)

			rec := waitCompleted(t, store, "s1")
			require.NotNil(t, rec.Result)
			assert.False(t, rec.Result.Success)
			assert.Equal(t, tt.wantID, rec.Result.ID)
			assert.Equal(t, tt.wantErr, rec.Result.Error)
		})
	}
}

func TestPool_QueueFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := results.NewMemoryStore(10, time.Hour)
	rec := &countingRecorder{}
	release := make(chan struct{})
	defer close(release)

	pool := NewPool(1, 1, runnerFunc(func(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
		<-release
		return &testrun.TestResult{Success: true}, nil
	}), store, logger.NewTestLogger(), WithRecorder(rec))
	pool.Start(ctx)

	_, err := pool.Submit(ctx, request("busy"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.started.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err = pool.Submit(ctx, request("queued"))
	require.NoError(t, err)

	id, err := pool.Submit(ctx, request("rejected"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, "rejected", id)
	assert.Equal(t, int32(1), rec.rejected.Load())

	got, err := store.Get(ctx, "rejected")
	require.NoError(t, err)
	assert.Equal(t, results.StatusCompleted, got.Status)
	assert.Equal(t, ErrQueueFull.Error(), got.Result.Error)
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := results.NewMemoryStore(10, time.Hour)
	var mu sync.Mutex
	var ran []string
	pool := NewPool(2, 4, runnerFunc(func(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
		mu.Lock()
		ran = append(ran, req.SessionID)
		mu.Unlock()
		return &testrun.TestResult{ID: req.SessionID, Success: true}, nil
	}), store, logger.NewTestLogger())

	for _, id := range []string{"a", "b", "c"} {
		_, err := pool.Submit(ctx, request(id))
		require.NoError(t, err)
	}
	pool.Start(ctx)

	shutdownCtx, done := context.WithTimeout(ctx, 2*time.Second)
	defer done()
	require.NoError(t, pool.Shutdown(shutdownCtx))

	mu.Lock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ran)
	mu.Unlock()

	_, err := pool.Submit(ctx, request("late"))
	assert.ErrorIs(t, err, ErrPoolStopped)
	// shutting down twice is safe
	require.NoError(t, pool.Shutdown(shutdownCtx))
}
