package workflow

import (
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// MaxRetries is the number of healing attempts a run may make.
const MaxRetries = 3

// State names a node of the workflow.
type State string

const (
	StatePlan     State = "plan"
	StateGenerate State = "generate"
	StateExecute  State = "execute"
	StateValidate State = "validate"
	StateHeal     State = "heal"
	StateTerminal State = "terminal"
)

func (s State) IsValid() bool {
	switch s {
	case StatePlan, StateGenerate, StateExecute, StateValidate, StateHeal, StateTerminal:
		return true
	}
	return false
}

// Step labels recorded in WorkflowState.CurrentStep.
const (
	stepInitialized        = "initialization"
	stepPlanningComplete   = "planning_complete"
	stepGenerationComplete = "generation_complete"
	stepExecutionComplete  = "execution_complete"
	stepValidationComplete = "validation_complete"
	stepHealingComplete    = "healing_complete"
)

func failedStep(s State) string {
	switch s {
	case StatePlan:
		return "planning_failed"
	case StateGenerate:
		return "generation_failed"
	case StateExecute:
		return "execution_failed"
	case StateValidate:
		return "validation_failed"
	case StateHeal:
		return "healing_failed"
	}
	return string(s) + "_failed"
}

// WorkflowState is the private record of one run.
type WorkflowState struct {
	Request testrun.Request
	Plan    *testplan.TestPlan
	Code    string
	Result  *testrun.TestResult
	// Errors accumulates every non-fatal failure in the order it happened.
	Errors      []*StageError
	CurrentStep string
	SessionID   string
	RetryCount  int
	// PageHTML is the markup captured by the last failed execution.
	PageHTML string
	// Fatal is set when the run cannot continue and must report an error.
	Fatal *StageError
	// Attempts counts executions.
	Attempts int
}

// ErrorStrings returns the recorded errors as text.
func (s *WorkflowState) ErrorStrings() []string {
	out := make([]string, 0, len(s.Errors))
	for _, e := range s.Errors {
		out = append(out, e.Error())
	}
	return out
}

// update is the partial change a handler returns. Nil and empty fields leave
// the state untouched.
type update struct {
	plan        *testplan.TestPlan
	code        *string
	result      *testrun.TestResult
	pageHTML    *string
	errors      []*StageError
	currentStep string
	retryCount  *int
	fatal       *StageError
	executed    bool
}

func (s *WorkflowState) apply(u update) {
	if u.plan != nil {
		s.Plan = u.plan
	}
	if u.code != nil {
		s.Code = *u.code
	}
	if u.result != nil {
		s.Result = u.result
	}
	if u.pageHTML != nil {
		s.PageHTML = *u.pageHTML
	}
	s.Errors = append(s.Errors, u.errors...)
	if u.currentStep != "" {
		s.CurrentStep = u.currentStep
	}
	// The retry counter never decreases.
	if u.retryCount != nil && *u.retryCount > s.RetryCount {
		s.RetryCount = min(*u.retryCount, MaxRetries)
	}
	if u.fatal != nil {
		s.Fatal = u.fatal
	}
	if u.executed {
		s.Attempts++
	}
}
