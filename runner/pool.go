// Package runner executes submitted test requests on a bounded pool of
// workers and records their progress in a results store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/results"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

var (
	ErrQueueFull   = errors.New("run queue is full")
	ErrPoolStopped = errors.New("run pool is stopped")
)

// Runner runs one request to completion. workflow.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, req testrun.Request) (*testrun.TestResult, error)
}

// Recorder observes the pool's load.
type Recorder interface {
	RunStarted()
	RunFinished()
	RunRejected()
}

type nopRecorder struct{}

func (nopRecorder) RunStarted()  {}
func (nopRecorder) RunFinished() {}
func (nopRecorder) RunRejected() {}

// Pool runs requests on maxWorkers goroutines fed from a queue of
// queueSize pending requests.
type Pool struct {
	queue      chan testrun.Request
	maxWorkers int
	runner     Runner
	store      results.Store
	recorder   Recorder
	logger     logger.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

type Option func(*Pool)

func WithRecorder(r Recorder) Option {
	return func(p *Pool) {
		if r != nil {
			p.recorder = r
		}
	}
}

func NewPool(maxWorkers, queueSize int, runner Runner, store results.Store, log logger.Logger, opts ...Option) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		queue:      make(chan testrun.Request, queueSize),
		maxWorkers: maxWorkers,
		runner:     runner,
		store:      store,
		recorder:   nopRecorder{},
		logger:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start spawns the workers. They exit when ctx is cancelled or after
// Shutdown once the queue is drained.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info(ctx, "starting run pool", map[string]interface{}{
		"max_workers": p.maxWorkers,
		"queue_size":  cap(p.queue),
	})
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Submit records req as pending and queues it. The returned session id is
// the key under which the run's status is stored.
func (p *Pool) Submit(ctx context.Context, req testrun.Request) (string, error) {
	req = req.Normalize()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return "", ErrPoolStopped
	}

	if err := p.store.Put(ctx, req.SessionID, results.NewRecord(req.SessionID)); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	select {
	case p.queue <- req:
		p.logger.Info(ctx, "run queued", map[string]interface{}{
			"session_id": req.SessionID,
		})
		return req.SessionID, nil
	default:
	}

	p.recorder.RunRejected()
	p.logger.Warn(ctx, "run rejected", map[string]interface{}{
		"session_id": req.SessionID,
		"error":      ErrQueueFull.Error(),
	})
	p.finish(ctx, req.SessionID, nil, testrun.NewErrorResult(req.SessionID, "", ErrQueueFull.Error()))
	return req.SessionID, ErrQueueFull
}

// Shutdown stops accepting requests and waits for queued runs to finish or
// ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	p.logger.Debug(ctx, "worker started", map[string]interface{}{
		"worker_id": id,
	})
	for {
		select {
		case req, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(logger.ContextWithSession(ctx, req.SessionID), id, req)
		case <-ctx.Done():
			p.logger.Debug(ctx, "worker stopping", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}
}

func (p *Pool) process(ctx context.Context, workerID int, req testrun.Request) {
	p.recorder.RunStarted()
	defer p.recorder.RunFinished()

	p.logger.Info(ctx, "worker processing run", map[string]interface{}{
		"worker_id":  workerID,
		"session_id": req.SessionID,
	})

	rec, err := p.store.Get(ctx, req.SessionID)
	if err != nil {
		rec = results.NewRecord(req.SessionID)
	}
	if err := rec.Start(); err != nil {
		p.logger.Warn(ctx, "run record not pending", map[string]interface{}{
			"session_id": req.SessionID,
			"status":     string(rec.Status),
		})
		rec = results.NewRecord(req.SessionID)
		_ = rec.Start()
	}
	if err := p.store.Put(ctx, req.SessionID, rec); err != nil {
		p.logger.Error(ctx, "failed to mark run running", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
	}

	p.finish(ctx, req.SessionID, rec, p.run(ctx, req))
}

// run never fails: errors and panics become failure results.
func (p *Pool) run(ctx context.Context, req testrun.Request) (result *testrun.TestResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, "run panicked", map[string]interface{}{
				"session_id": req.SessionID,
				"panic":      fmt.Sprint(r),
			})
			result = testrun.NewErrorResult(req.SessionID, "", fmt.Sprintf("run panicked: %v", r))
		}
	}()

	result, err := p.runner.Run(ctx, req)
	if err != nil {
		p.logger.Error(ctx, "run failed", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		return testrun.NewErrorResult(req.SessionID, "", err.Error())
	}
	if result == nil {
		return testrun.NewNoResult()
	}
	return result
}

func (p *Pool) finish(ctx context.Context, sessionID string, rec *results.Record, result *testrun.TestResult) {
	if rec == nil {
		rec = results.NewRecord(sessionID)
		_ = rec.Start()
	}
	if err := rec.Complete(result); err != nil {
		p.logger.Error(ctx, "failed to complete run record", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}
	if err := p.store.Put(ctx, sessionID, rec); err != nil {
		p.logger.Error(ctx, "failed to store run result", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}
	p.logger.Info(ctx, "run completed", map[string]interface{}{
		"session_id": sessionID,
		"success":    result.Success,
	})
}
