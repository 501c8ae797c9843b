package testrun

import (
	"time"

	"github.com/hairizuan-noorazman/testpilot/internal/idgen"
	"github.com/hairizuan-noorazman/testpilot/testplan"
)

// NoResultError is the error text of the result synthesized when a workflow ends
// without any result.
const NoResultError = "Workflow completed without producing a result"

// StepResult is the outcome of one plan step.
type StepResult struct {
	Step       testplan.TestStep `json:"step"`
	StepNumber int               `json:"step_number,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Screenshot string            `json:"screenshot,omitempty"`
	// Duration is in seconds.
	Duration  float64   `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

// TestResult is the outcome of executing a test. After creation only the result
// validator modifies it.
type TestResult struct {
	ID      string `json:"id"`
	PlanID  string `json:"plan_id"`
	Success bool   `json:"success"`
	// ExecutionTime is in seconds.
	ExecutionTime float64      `json:"execution_time"`
	Steps         []StepResult `json:"steps"`
	PassedSteps   int          `json:"passed_steps"`
	FailedSteps   int          `json:"failed_steps"`
	Screenshots   []string     `json:"screenshots"`
	VideoURL      string       `json:"video_url,omitempty"`
	Error         string       `json:"error,omitempty"`
	Analysis      string       `json:"analysis,omitempty"`
	BrowserLogs   []string     `json:"browser_logs,omitempty"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`

	// PageHTML is the page markup captured when execution failed.
	PageHTML string `json:"-"`
}

// NewFailureResult builds a failed result for a session that produced no
// execution output.
func NewFailureResult(id, planID, errText string) *TestResult {
	if planID == "" {
		planID = "unknown"
	}
	return &TestResult{
		ID:          id,
		PlanID:      planID,
		Success:     false,
		Steps:       []StepResult{},
		Screenshots: []string{},
		Error:       errText,
	}
}

// NewNoResult returns the result reported when a workflow finished without
// producing one.
func NewNoResult() *TestResult {
	return NewFailureResult("error_no_result", "unknown", NoResultError)
}

// NewErrorResult returns the failure result recorded for a session whose
// execution raised before producing output.
func NewErrorResult(sessionID, planID, errText string) *TestResult {
	return NewFailureResult(idgen.ErrorResultID(sessionID), planID, errText)
}

// CountSteps returns the number of passed and failed step results.
func (r *TestResult) CountSteps() (passed, failed int) {
	for _, s := range r.Steps {
		if s.Success {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// FailedStepResults returns the failed step results in order.
func (r *TestResult) FailedStepResults() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if !s.Success {
			out = append(out, s)
		}
	}
	return out
}
