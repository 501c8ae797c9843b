// Package executor runs generated test scripts and plan steps against browser
// sessions and reports the outcome as a testrun.TestResult.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hairizuan-noorazman/testpilot/browser"
	"github.com/hairizuan-noorazman/testpilot/internal/idgen"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/script"
	"github.com/hairizuan-noorazman/testpilot/storage"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

var (
	ErrSessionUnavailable = errors.New("browser session unavailable")
	ErrAssertionFailed    = errors.New("assertion failed")
)

// Config controls execution behaviour.
type Config struct {
	ScreenshotOnFailure bool
	// ArtifactTimeout bounds each call fetching remote screenshots or the
	// recording, and the release of the session.
	ArtifactTimeout time.Duration
	// MarkupLimit caps the page HTML kept on failure. Zero keeps everything.
	MarkupLimit int
}

func DefaultConfig() Config {
	return Config{
		ScreenshotOnFailure: true,
		ArtifactTimeout:     10 * time.Second,
		MarkupLimit:         200000,
	}
}

// Options are per-call execution options.
type Options struct {
	// SessionID reuses an existing provider session. The executor creates and
	// closes its own session when empty.
	SessionID string
	// Plan is used to attribute statements to plan steps.
	Plan *testplan.TestPlan
}

// Executor is the execution adapter.
type Executor struct {
	provider browser.SessionProvider
	blobs    storage.BlobStorage
	config   Config
	logger   logger.Logger
}

// New creates an executor. blobs may be nil, in which case screenshots are not
// stored.
func New(provider browser.SessionProvider, blobs storage.BlobStorage, config Config, log logger.Logger) *Executor {
	if config.ArtifactTimeout <= 0 {
		config.ArtifactTimeout = DefaultConfig().ArtifactTimeout
	}
	return &Executor{
		provider: provider,
		blobs:    blobs,
		config:   config,
		logger:   log,
	}
}

// session is a provisioned browser session and an open page on it.
type session struct {
	id    string
	owned bool
	page  browser.Page
}

// acquire creates or reuses a session and opens a page. The returned release
// function closes the page and, if the session was created here, the session.
func (e *Executor) acquire(ctx context.Context, req testrun.Request, sessionID string) (*session, func(), error) {
	s := &session{id: sessionID}
	if s.id == "" {
		created, err := e.provider.CreateSession(ctx, browser.SessionOptions{
			Browser:  req.Browser,
			Headless: req.IsHeadless(),
			Viewport: req.ViewportOrDefault(),
		})
		if err != nil {
			return nil, func() {}, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
		}
		s.id = created.ID
		s.owned = true
	}

	closeSession := func() {
		if !s.owned {
			return
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.ArtifactTimeout)
		defer cancel()
		if err := e.provider.CloseSession(rctx, s.id); err != nil {
			e.logger.Warn(ctx, "failed to close browser session", map[string]interface{}{
				"browser_session": s.id,
				"error":           err.Error(),
			})
		}
	}

	page, err := e.provider.Connect(ctx, s.id, req.ViewportOrDefault())
	if err != nil {
		closeSession()
		return nil, func() {}, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	s.page = page

	return s, func() {
		if err := page.Close(); err != nil {
			e.logger.Warn(ctx, "failed to close page", map[string]interface{}{
				"browser_session": s.id,
				"error":           err.Error(),
			})
		}
		closeSession()
	}, nil
}

// Execute runs a generated script. It always returns a result; every failure is
// reported through TestResult.Error.
func (e *Executor) Execute(ctx context.Context, code string, req testrun.Request, opts Options) (result *testrun.TestResult) {
	started := time.Now()
	result = e.newResult(req, opts.Plan, started)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(ctx, "test execution panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			result.Success = false
			result.Error = fmt.Sprintf("test execution panicked: %v", r)
		}
		finish(result, started)
	}()

	e.logger.Info(ctx, "starting test execution", map[string]interface{}{
		"browser": string(req.Browser),
		"plan_id": result.PlanID,
	})

	parsed, err := script.Parse(code)
	if err != nil {
		result.Error = fmt.Sprintf("failed to parse test script: %v", err)
		return result
	}

	s, release, err := e.acquire(ctx, req, opts.SessionID)
	if err != nil {
		e.logger.Error(ctx, "failed to acquire browser session", map[string]interface{}{"error": err.Error()})
		result.Error = err.Error()
		return result
	}
	defer release()

	r := &run{
		exec:    e,
		page:    s.page,
		session: s.id,
		result:  result,
		plan:    opts.Plan,
		timeout: req.TimeoutDuration(),
	}
	if parsed.DefaultTimeout > 0 {
		r.timeout = parsed.DefaultTimeout
	}

	runErr := r.statements(ctx, parsed.Statements)
	result.BrowserLogs = s.page.ConsoleLogs()
	if runErr != nil {
		e.logger.Error(ctx, "test execution failed", map[string]interface{}{"error": runErr.Error()})
		result.Error = runErr.Error()
		e.captureFailure(ctx, s, result)
	} else {
		result.Success = true
	}

	// The page is closed before remote artifacts are fetched; the deferred
	// release closes the session after. Close is idempotent.
	if err := s.page.Close(); err != nil {
		e.logger.Warn(ctx, "failed to close page", map[string]interface{}{"error": err.Error()})
	}
	e.collectArtifacts(ctx, s.id, result)

	e.logger.Info(ctx, "test execution completed", map[string]interface{}{
		"success":        result.Success,
		"execution_time": time.Since(started).Seconds(),
	})
	return result
}

func (e *Executor) newResult(req testrun.Request, plan *testplan.TestPlan, started time.Time) *testrun.TestResult {
	planID := req.SessionID
	if plan != nil && plan.ID != "" {
		planID = plan.ID
	}
	result := testrun.NewFailureResult(idgen.NewResultID(req.SessionID), planID, "")
	result.StartedAt = &started
	return result
}

func finish(result *testrun.TestResult, started time.Time) {
	completed := time.Now()
	result.CompletedAt = &completed
	result.ExecutionTime = completed.Sub(started).Seconds()
	result.PassedSteps, result.FailedSteps = result.CountSteps()
}

// captureFailure stores a failure screenshot and keeps the page markup. Both are
// best effort.
func (e *Executor) captureFailure(ctx context.Context, s *session, result *testrun.TestResult) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.ArtifactTimeout)
	defer cancel()

	if e.config.ScreenshotOnFailure {
		name := fmt.Sprintf("error_%d.png", time.Now().UnixNano())
		if path, err := e.screenshot(cctx, s.page, s.id, name); err != nil {
			e.logger.Warn(ctx, "failed to capture failure screenshot", map[string]interface{}{"error": err.Error()})
		} else if path != "" {
			result.Screenshots = append(result.Screenshots, path)
		}
	}

	html, err := s.page.Content(cctx)
	if err != nil {
		e.logger.Warn(ctx, "failed to capture page markup", map[string]interface{}{"error": err.Error()})
		return
	}
	if e.config.MarkupLimit > 0 && len(html) > e.config.MarkupLimit {
		html = html[:e.config.MarkupLimit]
	}
	result.PageHTML = html
}

// collectArtifacts merges the screenshots and recording captured by the session
// provider into result.
func (e *Executor) collectArtifacts(ctx context.Context, sessionID string, result *testrun.TestResult) {
	var shots []string
	var recording string

	// Each artifact is fetched on its own deadline so one failing does not
	// cancel the other.
	actx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(actx, e.config.ArtifactTimeout)
		defer cancel()
		var err error
		if shots, err = e.provider.Screenshots(fctx, sessionID); err != nil {
			e.logger.Warn(ctx, "failed to fetch session screenshots", map[string]interface{}{
				"browser_session": sessionID,
				"error":           err.Error(),
			})
		}
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(actx, e.config.ArtifactTimeout)
		defer cancel()
		var err error
		if recording, err = e.provider.Recording(fctx, sessionID); err != nil {
			e.logger.Warn(ctx, "failed to fetch session recording", map[string]interface{}{
				"browser_session": sessionID,
				"error":           err.Error(),
			})
		}
		return nil
	})
	g.Wait()

	result.Screenshots = append(result.Screenshots, shots...)
	if recording != "" {
		result.VideoURL = recording
	}
}
