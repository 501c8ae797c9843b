package pageanalysis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/hairizuan-noorazman/testpilot/browser"
	"github.com/hairizuan-noorazman/testpilot/logger"
)

//go:embed extract.js
var extractScript string

// NavigationAttempt is one step of the escalating navigation policy.
type NavigationAttempt struct {
	WaitUntil browser.LoadState
	Timeout   time.Duration
}

// DefaultNavigationAttempts waits for DOM content first, then commit, then a
// full load, each with a longer timeout.
var DefaultNavigationAttempts = []NavigationAttempt{
	{WaitUntil: browser.LoadStateDOMContentLoaded, Timeout: 60 * time.Second},
	{WaitUntil: browser.LoadStateCommit, Timeout: 90 * time.Second},
	{WaitUntil: browser.LoadStateLoad, Timeout: 120 * time.Second},
}

const defaultSettleDelay = 2 * time.Second

// Opener opens a page for analysis. Closing the page must release the browser.
type Opener func(ctx context.Context, headless bool) (browser.Page, error)

// LiveAnalyzer loads the page in a real browser and extracts elements from the
// rendered DOM.
type LiveAnalyzer struct {
	open     Opener
	attempts []NavigationAttempt
	settle   time.Duration
	logger   logger.Logger
}

type LiveOption func(*LiveAnalyzer)

func WithNavigationAttempts(attempts []NavigationAttempt) LiveOption {
	return func(a *LiveAnalyzer) {
		if len(attempts) > 0 {
			a.attempts = attempts
		}
	}
}

// WithSettleDelay sets how long to wait for dynamic content after load.
func WithSettleDelay(d time.Duration) LiveOption {
	return func(a *LiveAnalyzer) {
		a.settle = d
	}
}

func NewLiveAnalyzer(open Opener, log logger.Logger, opts ...LiveOption) *LiveAnalyzer {
	a := &LiveAnalyzer{
		open:     open,
		attempts: DefaultNavigationAttempts,
		settle:   defaultSettleDelay,
		logger:   log.WithField("component", "live_analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze navigates to url and extracts its PageAnalysis. If every navigation
// attempt fails, the last navigation error is returned.
func (a *LiveAnalyzer) Analyze(ctx context.Context, url string, headless bool) (*PageAnalysis, error) {
	a.logger.Info(ctx, "analyzing page", map[string]interface{}{"url": url})

	page, err := a.open(ctx, headless)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	defer page.Close()

	if err := a.navigate(ctx, page, url); err != nil {
		return nil, err
	}

	if err := page.WaitForLoadState(ctx, browser.LoadStateDOMContentLoaded); err != nil {
		a.logger.Warn(ctx, "page did not report dom content loaded", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}

	if a.settle > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.settle):
		}
	}

	var raw rawPage
	if err := page.Evaluate(ctx, extractScript, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}
	if raw.URL == "" {
		raw.URL = url
	}

	analysis := build(raw)
	a.logger.Info(ctx, "page analysis complete", map[string]interface{}{
		"url":     url,
		"buttons": len(analysis.Buttons),
		"inputs":  len(analysis.Inputs),
		"forms":   len(analysis.Forms),
	})
	return analysis, nil
}

func (a *LiveAnalyzer) navigate(ctx context.Context, page browser.Page, url string) error {
	var lastErr error
	for _, attempt := range a.attempts {
		err := page.Goto(ctx, url, browser.NavigateOptions{
			WaitUntil: attempt.WaitUntil,
			Timeout:   attempt.Timeout,
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		a.logger.Warn(ctx, "navigation attempt failed, retrying", map[string]interface{}{
			"url":        url,
			"wait_until": string(attempt.WaitUntil),
			"timeout_ms": attempt.Timeout.Milliseconds(),
			"error":      err.Error(),
		})
	}
	if lastErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNavigationFailed, lastErr)
}
