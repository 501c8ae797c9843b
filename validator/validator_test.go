package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/testpilot/llm"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

func step(desc string, ok bool, errText string) testrun.StepResult {
	return testrun.StepResult{Step: testplan.TestStep{Description: desc}, Success: ok, Error: errText}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Timeout 30000ms exceeded waiting for selector '#a'", "Timeout Error"},
		{"element not found for selector '#a'", "Selector Error"},
		{"navigation to 'x' failed", "Navigation Error"},
		{"Network unreachable", "Network Error"},
		{"assertion failed: expected 'a'", "Assertion Failed"},
		{"Element not found", "Element Not Found"},
		{"click intercepted", "Interaction Error"},
		{"fill rejected", "Input Error"},
		{"something else", DefaultCategory},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.in))
		})
	}
}

func TestValidate_FailedResult(t *testing.T) {
	var prompt string
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		prompt = req.Prompt
		return "  The submit button could not be found.  ", nil
	})

	result := &testrun.TestResult{
		ID:            "r1",
		ExecutionTime: 1.5,
		Steps: []testrun.StepResult{
			step("Open page", true, ""),
			step("Submit", false, "element not found for selector '#submit'"),
		},
		Error: "element not found for selector '#submit'",
	}

	out := New(client, logger.NewTestLogger()).Validate(context.Background(), result)
	require.Same(t, result, out)

	assert.Equal(t, "Selector Error: element not found for selector '#submit'", out.Error)
	assert.Equal(t, 1, out.PassedSteps)
	assert.Equal(t, 1, out.FailedSteps)
	assert.Equal(t, "The submit button could not be found.", out.Analysis)

	assert.Contains(t, prompt, "Success: false")
	assert.Contains(t, prompt, "Execution Time: 1.50s")
	assert.Contains(t, prompt, "Steps Executed: 2")
	assert.Contains(t, prompt, "- Submit: element not found for selector '#submit'")
}

func TestValidate_SuccessKeepsError(t *testing.T) {
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		assert.Contains(t, req.Prompt, "No failed steps")
		assert.Contains(t, req.Prompt, "Error (if any): None")
		return "All good.", nil
	})
	result := &testrun.TestResult{Success: true, Steps: []testrun.StepResult{step("a", true, "")}}

	out := New(client, logger.NewTestLogger()).Validate(context.Background(), result)
	assert.Equal(t, "", out.Error)
	assert.Equal(t, 1, out.PassedSteps)
	assert.Equal(t, 0, out.FailedSteps)
	assert.Equal(t, "All good.", out.Analysis)
}

func TestValidate_AnalysisUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
	}{
		{name: "model error", err: errors.New("throttled")},
		{name: "not configured", err: llm.ErrNotConfigured},
		{name: "blank answer", answer: "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
				return tt.answer, tt.err
			})
			log := logger.NewTestLogger()
			result := &testrun.TestResult{Error: "boom"}

			out := New(client, log).Validate(context.Background(), result)
			assert.Equal(t, AnalysisUnavailable, out.Analysis)
			assert.Equal(t, DefaultCategory+": boom", out.Error)
			assert.True(t, log.HasMessage("warn", "failed to analyze result"))
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		return "ok", nil
	})
	v := New(client, logger.NewTestLogger())
	result := &testrun.TestResult{Error: "Timeout 5000ms exceeded"}

	v.Validate(context.Background(), result)
	v.Validate(context.Background(), result)
	assert.Equal(t, "Timeout Error: Timeout 5000ms exceeded", result.Error)
}

func TestValidate_PanicReturnsOriginal(t *testing.T) {
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		panic("bad client")
	})
	result := &testrun.TestResult{ID: "r1", Error: "boom", Steps: []testrun.StepResult{step("a", false, "x")}}

	out := New(client, logger.NewTestLogger()).Validate(context.Background(), result)
	require.NotNil(t, out)
	assert.Equal(t, "boom", out.Error)
	assert.Equal(t, 0, out.FailedSteps)
	assert.Empty(t, out.Analysis)
}

func TestValidate_Nil(t *testing.T) {
	assert.Nil(t, New(llm.Unconfigured{}, logger.NewTestLogger()).Validate(context.Background(), nil))
}

func TestFormatFailedSteps_Capped(t *testing.T) {
	var failed []testrun.StepResult
	for i := 0; i < 8; i++ {
		failed = append(failed, step(fmt.Sprintf("step %d", i), false, "err"))
	}
	out := formatFailedSteps(failed)
	assert.Equal(t, maxFailedSteps, strings.Count(out, "\n")+1)
	assert.NotContains(t, out, "step 5")
}
