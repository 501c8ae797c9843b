package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hairizuan-noorazman/testpilot/browser"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

const retryDelay = 250 * time.Millisecond

// ExecuteSteps runs plan steps one primitive at a time. A failing step is
// reported and the batch continues.
func (e *Executor) ExecuteSteps(ctx context.Context, steps []testplan.TestStep, req testrun.Request, opts Options) (result *testrun.TestResult) {
	started := time.Now()
	result = e.newResult(req, opts.Plan, started)
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("step execution panicked: %v", r)
		}
		finish(result, started)
	}()

	s, release, err := e.acquire(ctx, req, opts.SessionID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer release()

	timeout := req.TimeoutDuration()
	for i, step := range steps {
		sr := e.ExecuteStep(ctx, s.page, s.id, step, timeout)
		sr.StepNumber = i + 1
		result.Steps = append(result.Steps, sr)
		if !sr.Success && result.Error == "" {
			result.Error = fmt.Sprintf("step %d failed: %s", i+1, sr.Error)
		}
		if sr.Screenshot != "" {
			result.Screenshots = append(result.Screenshots, sr.Screenshot)
		}
	}
	result.Success = result.Error == ""
	result.BrowserLogs = s.page.ConsoleLogs()

	if err := s.page.Close(); err != nil {
		e.logger.Warn(ctx, "failed to close page", map[string]interface{}{"error": err.Error()})
	}
	e.collectArtifacts(ctx, s.id, result)
	return result
}

// ExecuteStep runs a single step on page, applying its waits and retry budget.
// Each attempt is bounded by timeout.
func (e *Executor) ExecuteStep(ctx context.Context, page browser.Page, sessionID string, step testplan.TestStep, timeout time.Duration) testrun.StepResult {
	started := time.Now()
	sr := testrun.StepResult{Step: step, Timestamp: started}

	if step.WaitBefore != nil {
		if err := sleep(ctx, time.Duration(*step.WaitBefore)*time.Millisecond); err != nil {
			sr.Error = err.Error()
			sr.Duration = time.Since(started).Seconds()
			return sr
		}
	}

	var err error
	attempts := step.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, timeout)
		sr.Screenshot, err = e.step(actx, page, sessionID, step, timeout)
		cancel()
		if err == nil || ctx.Err() != nil {
			break
		}
		e.logger.Debug(ctx, "step attempt failed", map[string]interface{}{
			"action":  string(step.Action),
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt < attempts {
			if werr := sleep(ctx, retryDelay); werr != nil {
				break
			}
		}
	}

	if err == nil && step.WaitAfter != nil {
		err = sleep(ctx, time.Duration(*step.WaitAfter)*time.Millisecond)
	}

	sr.Duration = time.Since(started).Seconds()
	if err != nil {
		sr.Error = err.Error()
		return sr
	}
	sr.Success = true
	return sr
}

func (e *Executor) step(ctx context.Context, page browser.Page, sessionID string, step testplan.TestStep, timeout time.Duration) (string, error) {
	switch step.Action {
	case testplan.ActionNavigate:
		url := step.Value
		if url == "" {
			url = step.Selector
		}
		return "", page.Goto(ctx, url, browser.NavigateOptions{WaitUntil: browser.LoadStateLoad, Timeout: timeout})
	case testplan.ActionClick:
		return "", page.Click(ctx, step.Selector)
	case testplan.ActionType:
		return "", page.Fill(ctx, step.Selector, step.Value)
	case testplan.ActionWait:
		if step.Selector == "" {
			return "", page.WaitForLoadState(ctx, browser.LoadStateLoad)
		}
		return "", page.WaitForSelector(ctx, step.Selector, browser.StateVisible)
	case testplan.ActionScreenshot:
		return e.screenshot(ctx, page, sessionID, step.Value)
	case testplan.ActionSelect:
		return "", page.SelectOption(ctx, step.Selector, step.Value)
	case testplan.ActionHover:
		return "", page.Hover(ctx, step.Selector)
	case testplan.ActionScroll:
		return "", page.ScrollTo(ctx, step.Value)
	case testplan.ActionAssert:
		if step.Selector == "" {
			return "", nil
		}
		return "", page.WaitForSelector(ctx, step.Selector, browser.StateVisible)
	}
	return "", fmt.Errorf("%w: %s", testplan.ErrInvalidAction, step.Action)
}
