package executor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/testpilot/browser"
	"github.com/hairizuan-noorazman/testpilot/script"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

const pollInterval = 100 * time.Millisecond

// run is the state of one script execution.
type run struct {
	exec    *Executor
	page    browser.Page
	session string
	result  *testrun.TestResult
	plan    *testplan.TestPlan
	timeout time.Duration

	stepIndex map[int]int
}

func (r *run) statements(ctx context.Context, statements []script.Statement) error {
	r.stepIndex = make(map[int]int)

	for _, st := range statements {
		if err := ctx.Err(); err != nil {
			return err
		}

		sr := r.stepResult(st.Step)
		started := time.Now()
		err := r.statement(ctx, st)
		if sr != nil {
			sr.Duration += time.Since(started).Seconds()
		}
		if err != nil {
			err = fmt.Errorf("line %d: %w", st.Line, err)
			if sr != nil {
				sr.Success = false
				sr.Error = err.Error()
			}
			return err
		}
	}
	return nil
}

// stepResult returns the result record of plan step n, creating it on first use.
// Steps outside the plan are not recorded.
func (r *run) stepResult(n int) *testrun.StepResult {
	if r.plan == nil {
		return nil
	}
	step, ok := r.plan.Step(n)
	if !ok {
		return nil
	}
	if i, ok := r.stepIndex[n]; ok {
		return &r.result.Steps[i]
	}
	r.result.Steps = append(r.result.Steps, testrun.StepResult{
		Step:       step,
		StepNumber: n,
		Success:    true,
		Timestamp:  time.Now(),
	})
	r.stepIndex[n] = len(r.result.Steps) - 1
	return &r.result.Steps[len(r.result.Steps)-1]
}

func (r *run) statement(ctx context.Context, st script.Statement) error {
	if st.Kind == script.KindUnsupported {
		return fmt.Errorf("%w: %s", st.Err, st.Source)
	}

	switch st.Kind {
	case script.KindSetTimeout:
		r.timeout = st.Timeout
		return nil
	case script.KindWaitForTimeout:
		return sleep(ctx, st.Timeout)
	}

	timeout := r.timeout
	if st.Timeout > 0 {
		timeout = st.Timeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := r.do(sctx, st, timeout)
	if err == nil {
		return nil
	}
	return r.describe(ctx, st, timeout, err)
}

func (r *run) do(ctx context.Context, st script.Statement, timeout time.Duration) error {
	switch st.Kind {
	case script.KindGoto:
		state := browser.LoadState(st.State)
		if state == "" {
			state = browser.LoadStateLoad
		}
		return r.page.Goto(ctx, st.Value, browser.NavigateOptions{WaitUntil: state, Timeout: timeout})
	case script.KindClick:
		return r.page.Click(ctx, st.Selector)
	case script.KindFill:
		return r.page.Fill(ctx, st.Selector, st.Value)
	case script.KindWaitForSelector:
		state := browser.ElementState(st.State)
		if state == "" {
			state = browser.StateVisible
		}
		return r.page.WaitForSelector(ctx, st.Selector, state)
	case script.KindWaitForLoadState:
		state := browser.LoadState(st.State)
		if state == "" {
			state = browser.LoadStateLoad
		}
		if !state.IsValid() {
			return fmt.Errorf("%w: %s", browser.ErrUnsupportedState, st.State)
		}
		return r.page.WaitForLoadState(ctx, state)
	case script.KindScreenshot:
		path, err := r.exec.screenshot(ctx, r.page, r.session, st.Value)
		if err != nil {
			return err
		}
		if path != "" {
			r.result.Screenshots = append(r.result.Screenshots, path)
		}
		return nil
	case script.KindSelectOption:
		return r.page.SelectOption(ctx, st.Selector, st.Value)
	case script.KindHover:
		return r.page.Hover(ctx, st.Selector)
	case script.KindScroll:
		return r.page.ScrollTo(ctx, st.Value)
	case script.KindExpectVisible:
		state := browser.StateVisible
		if st.Negate {
			state = browser.StateHidden
		}
		return r.page.WaitForSelector(ctx, st.Selector, state)
	case script.KindExpectText, script.KindExpectValue, script.KindExpectCount,
		script.KindExpectAttribute, script.KindExpectURL, script.KindExpectTitle:
		return r.expect(ctx, st)
	}
	return fmt.Errorf("%w: %s", script.ErrUnsupportedStatement, st.Kind)
}

// describe turns a primitive failure into the error text reported for the
// statement. Missing elements and timeouts are reported in the forms the healer
// recognises.
func (r *run) describe(ctx context.Context, st script.Statement, timeout time.Duration, err error) error {
	if errors.Is(err, ErrAssertionFailed) {
		return err
	}
	ms := timeout.Milliseconds()

	if st.Selector == "" {
		if errors.Is(err, context.DeadlineExceeded) {
			if st.Kind == script.KindGoto {
				return fmt.Errorf("timeout %dms exceeded during navigation to '%s': %w", ms, st.Value, err)
			}
			return fmt.Errorf("timeout %dms exceeded during %s: %w", ms, st.Kind, err)
		}
		if st.Kind == script.KindGoto {
			return fmt.Errorf("navigation to '%s' failed: %w", st.Value, err)
		}
		return fmt.Errorf("%s failed: %w", st.Kind, err)
	}

	if errors.Is(err, browser.ErrElementNotFound) || (errors.Is(err, context.DeadlineExceeded) && !r.exists(ctx, st.Selector)) {
		return fmt.Errorf("element not found for selector '%s' after %dms: %w", st.Selector, ms, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout %dms exceeded waiting for selector '%s': %w", ms, st.Selector, err)
	}
	return fmt.Errorf("%s on selector '%s' failed: %w", st.Kind, st.Selector, err)
}

// exists reports whether selector currently matches anything.
func (r *run) exists(ctx context.Context, selector string) bool {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	n, err := r.page.Count(cctx, selector)
	return err == nil && n > 0
}

// expect polls the page until the expectation holds or ctx expires.
func (r *run) expect(ctx context.Context, st script.Statement) error {
	var lastErr error
	var lastDetail string
	for {
		ok, detail, err := r.check(ctx, st)
		if err == nil && ok != st.Negate {
			return nil
		}
		lastErr, lastDetail = err, detail

		if werr := sleep(ctx, pollInterval); werr != nil {
			if lastErr != nil {
				return lastErr
			}
			return fmt.Errorf("%w: %s", ErrAssertionFailed, lastDetail)
		}
	}
}

// check evaluates an expectation once. detail describes a mismatch.
func (r *run) check(ctx context.Context, st script.Statement) (bool, string, error) {
	not := ""
	if st.Negate {
		not = "not "
	}

	switch st.Kind {
	case script.KindExpectText:
		got, err := r.page.Text(ctx, st.Selector)
		if err != nil {
			return false, "", err
		}
		return matches(got, st), fmt.Sprintf("expected text of '%s' %sto %s, got %q", st.Selector, not, want(st), got), nil

	case script.KindExpectValue:
		got, err := r.page.InputValue(ctx, st.Selector)
		if err != nil {
			return false, "", err
		}
		return matches(got, st), fmt.Sprintf("expected value of '%s' %sto %s, got %q", st.Selector, not, want(st), got), nil

	case script.KindExpectCount:
		got, err := r.page.Count(ctx, st.Selector)
		if err != nil {
			return false, "", err
		}
		return got == st.Count, fmt.Sprintf("expected '%s' %sto match %d elements, got %d", st.Selector, not, st.Count, got), nil

	case script.KindExpectAttribute:
		got, present, err := r.page.Attribute(ctx, st.Selector, st.Name)
		if err != nil {
			return false, "", err
		}
		detail := fmt.Sprintf("expected attribute %s of '%s' %sto %s, got %q", st.Name, st.Selector, not, want(st), got)
		return present && matches(got, st), detail, nil

	case script.KindExpectURL:
		got, err := r.page.URL(ctx)
		if err != nil {
			return false, "", err
		}
		ok := matches(got, st) || strings.TrimSuffix(got, "/") == strings.TrimSuffix(st.Value, "/")
		return ok, fmt.Sprintf("expected page url %sto %s, got %q", not, want(st), got), nil

	case script.KindExpectTitle:
		got, err := r.page.Title(ctx)
		if err != nil {
			return false, "", err
		}
		return matches(got, st), fmt.Sprintf("expected page title %sto %s, got %q", not, want(st), got), nil
	}
	return false, "", fmt.Errorf("%w: %s", script.ErrUnsupportedStatement, st.Kind)
}

var whitespace = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func matches(got string, st script.Statement) bool {
	if st.Pattern != nil {
		return st.Pattern.MatchString(got)
	}
	switch st.Kind {
	case script.KindExpectText:
		if st.Exact {
			return normalize(got) == normalize(st.Value)
		}
		return strings.Contains(normalize(got), normalize(st.Value))
	}
	return got == st.Value
}

func want(st script.Statement) string {
	if st.Pattern != nil {
		return fmt.Sprintf("match /%s/", st.Pattern.String())
	}
	if st.Kind == script.KindExpectText && !st.Exact {
		return fmt.Sprintf("contain %q", st.Value)
	}
	return fmt.Sprintf("equal %q", st.Value)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
