// Package validator classifies test failures and annotates results with an
// analysis.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/llm"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// AnalysisUnavailable replaces the analysis when the model cannot provide one.
const AnalysisUnavailable = "Analysis unavailable"

// DefaultCategory is used for errors no keyword matches.
const DefaultCategory = "Test Execution Error"

// maxFailedSteps caps the failed steps described to the model.
const maxFailedSteps = 5

const analysisPrompt = `You are a test result analysis expert.

Analyze the test execution result and provide:
1. Summary of what was tested
2. Key findings
3. Potential issues identified
4. Recommendations for improvement

Be concise and focus on actionable insights.`

// categories are matched in order against the lowered error text.
var categories = []struct {
	keyword  string
	category string
}{
	{"timeout", "Timeout Error"},
	{"selector", "Selector Error"},
	{"navigation", "Navigation Error"},
	{"network", "Network Error"},
	{"assertion", "Assertion Failed"},
	{"element not found", "Element Not Found"},
	{"click", "Interaction Error"},
	{"fill", "Input Error"},
}

// Categorize returns the category of an error text.
func Categorize(errText string) string {
	lower := strings.ToLower(errText)
	for _, c := range categories {
		if strings.Contains(lower, c.keyword) {
			return c.category
		}
	}
	return DefaultCategory
}

// Validator is the result validator.
type Validator struct {
	client    llm.Client
	logger    logger.Logger
	maxTokens int
}

type Option func(*Validator)

func WithMaxTokens(n int) Option {
	return func(v *Validator) { v.maxTokens = n }
}

func New(client llm.Client, log logger.Logger, opts ...Option) *Validator {
	v := &Validator{client: client, logger: log}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate updates result in place with step counts, a categorized error and
// an analysis, and returns it. It never fails; if anything goes wrong the
// result is returned as it was.
func (v *Validator) Validate(ctx context.Context, result *testrun.TestResult) (out *testrun.TestResult) {
	if result == nil {
		return nil
	}

	snapshot := *result
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error(ctx, "validation failed, returning result unchanged", map[string]interface{}{
				"result_id": snapshot.ID,
				"panic":     fmt.Sprint(r),
			})
			*result = snapshot
			out = result
		}
	}()

	v.logger.Info(ctx, "validating test result", map[string]interface{}{
		"result_id": result.ID,
	})

	analysis := v.analyze(ctx, result)

	if result.Error != "" && !result.Success && !categorized(result.Error) {
		result.Error = Categorize(result.Error) + ": " + result.Error
	}
	result.PassedSteps, result.FailedSteps = result.CountSteps()
	result.Analysis = analysis

	v.logger.Info(ctx, "validation complete", map[string]interface{}{
		"result_id":    result.ID,
		"passed_steps": result.PassedSteps,
		"failed_steps": result.FailedSteps,
	})
	return result
}

// categorized reports whether errText already starts with a category, so a
// result validated twice is not prefixed twice.
func categorized(errText string) bool {
	if strings.HasPrefix(errText, DefaultCategory+": ") {
		return true
	}
	for _, c := range categories {
		if strings.HasPrefix(errText, c.category+": ") {
			return true
		}
	}
	return false
}

func (v *Validator) analyze(ctx context.Context, result *testrun.TestResult) string {
	temperature := 0.0
	text, err := v.client.Complete(ctx, llm.Request{
		System:      analysisPrompt,
		Prompt:      formatResult(result),
		MaxTokens:   v.maxTokens,
		Temperature: &temperature,
	})
	if err == nil {
		text = strings.TrimSpace(text)
	}
	if err != nil || text == "" {
		v.logger.Warn(ctx, "failed to analyze result", map[string]interface{}{
			"result_id": result.ID,
			"error":     fmt.Sprint(err),
		})
		return AnalysisUnavailable
	}
	return text
}

func formatResult(r *testrun.TestResult) string {
	passed, failed := r.CountSteps()
	errText := r.Error
	if errText == "" {
		errText = "None"
	}

	var b strings.Builder
	b.WriteString("Test Result Analysis:\n\n")
	fmt.Fprintf(&b, "Success: %t\n", r.Success)
	fmt.Fprintf(&b, "Execution Time: %.2fs\n", r.ExecutionTime)
	fmt.Fprintf(&b, "Steps Executed: %d\n", len(r.Steps))
	fmt.Fprintf(&b, "Passed Steps: %d\n", passed)
	fmt.Fprintf(&b, "Failed Steps: %d\n\n", failed)
	fmt.Fprintf(&b, "Error (if any): %s\n\n", errText)
	b.WriteString("Failed Steps Details:\n")
	b.WriteString(formatFailedSteps(r.FailedStepResults()))
	b.WriteString("\n\nProvide a brief analysis of this test execution.")
	return b.String()
}

func formatFailedSteps(failed []testrun.StepResult) string {
	if len(failed) == 0 {
		return "No failed steps"
	}
	if len(failed) > maxFailedSteps {
		failed = failed[:maxFailedSteps]
	}
	lines := make([]string, 0, len(failed))
	for _, s := range failed {
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Step.Description, s.Error))
	}
	return strings.Join(lines, "\n")
}
