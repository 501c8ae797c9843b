// Package workflow runs a test request through planning, generation,
// execution, healing and validation as an explicit state machine.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/hairizuan-noorazman/testpilot/executor"
	"github.com/hairizuan-noorazman/testpilot/generator"
	"github.com/hairizuan-noorazman/testpilot/healer"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// Run outcomes reported to the Recorder.
const (
	OutcomePassed         = "passed"
	OutcomeFailed         = "failed"
	OutcomePlanningFailed = "planning_failed"
	OutcomeNoResult       = "no_result"
)

// maxTransitions bounds the loop as a guard against a routing bug: plan,
// generate, one execute per retry plus the first, one heal per retry,
// validate and terminal.
const maxTransitions = 2 + (MaxRetries + 1) + MaxRetries + 2

type Planner interface {
	Plan(ctx context.Context, req testrun.Request) (*testplan.TestPlan, error)
}

type Generator interface {
	Generate(ctx context.Context, plan *testplan.TestPlan) generator.Generated
}

type Executor interface {
	Execute(ctx context.Context, code string, req testrun.Request, opts executor.Options) *testrun.TestResult
}

type Healer interface {
	Heal(ctx context.Context, req healer.Request) healer.Outcome
}

type Validator interface {
	Validate(ctx context.Context, result *testrun.TestResult) *testrun.TestResult
}

// Recorder observes transitions and finished runs.
type Recorder interface {
	Transition(from, to string)
	RunCompleted(outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Transition(from, to string)                   {}
func (nopRecorder) RunCompleted(outcome string, d time.Duration) {}

// Engine is the workflow engine. It holds no per-run state and may serve
// concurrent runs.
type Engine struct {
	planner   Planner
	generator Generator
	executor  Executor
	healer    Healer
	validator Validator
	recorder  Recorder
	logger    logger.Logger
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

func New(p Planner, g Generator, x Executor, h Healer, v Validator, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		planner:   p,
		generator: g,
		executor:  x,
		healer:    h,
		validator: v,
		recorder:  nopRecorder{},
		logger:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes req and returns its result. The only error returned is a
// planning failure; every other failure is reported in the result.
func (e *Engine) Run(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
	s, err := e.RunState(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Result, nil
}

// RunState is Run returning the final workflow state. The state's Result is
// always set when err is nil.
func (e *Engine) RunState(ctx context.Context, req testrun.Request) (*WorkflowState, error) {
	req = req.Normalize()
	ctx = logger.ContextWithSession(ctx, req.SessionID)
	started := time.Now()

	s := &WorkflowState{
		Request:     req,
		CurrentStep: stepInitialized,
		SessionID:   req.SessionID,
	}

	e.logger.Info(ctx, "starting workflow", map[string]interface{}{
		"instruction": req.Instruction,
		"url":         req.URL,
	})

	current := StatePlan
	for i := 0; current != StateTerminal; i++ {
		if i >= maxTransitions {
			e.logger.Error(ctx, "workflow exceeded transition limit", map[string]interface{}{
				"state": string(current),
			})
			break
		}
		s.apply(e.handle(ctx, current, *s))
		to := next(current, s)

		e.recorder.Transition(string(current), string(to))
		e.logger.Debug(ctx, "workflow transition", map[string]interface{}{
			"from":         string(current),
			"to":           string(to),
			"current_step": s.CurrentStep,
			"retry_count":  s.RetryCount,
		})
		current = to
	}

	if s.Fatal != nil {
		e.recorder.RunCompleted(OutcomePlanningFailed, time.Since(started))
		e.logger.Error(ctx, "workflow failed", map[string]interface{}{
			"error": s.Fatal.Error(),
		})
		return s, s.Fatal
	}

	outcome := OutcomeFailed
	switch {
	case s.Result == nil:
		s.Result = testrun.NewNoResult()
		outcome = OutcomeNoResult
	case s.Result.Success:
		outcome = OutcomePassed
	}
	e.recorder.RunCompleted(outcome, time.Since(started))

	e.logger.Info(ctx, "workflow finished", map[string]interface{}{
		"outcome":     outcome,
		"retry_count": s.RetryCount,
		"attempts":    s.Attempts,
		"errors":      len(s.Errors),
	})
	return s, nil
}

// Plan runs only the planning stage.
func (e *Engine) Plan(ctx context.Context, req testrun.Request) (*testplan.TestPlan, error) {
	req = req.Normalize()
	return e.planner.Plan(logger.ContextWithSession(ctx, req.SessionID), req)
}

// Generate runs planning and code generation.
func (e *Engine) Generate(ctx context.Context, req testrun.Request) (*testplan.TestPlan, string, error) {
	plan, err := e.Plan(ctx, req)
	if err != nil {
		return nil, "", err
	}
	out := e.generator.Generate(ctx, plan)
	return plan, out.Code, nil
}

// handle runs the handler of state on a copy of s. A panicking handler is
// recorded as a failure of that state.
func (e *Engine) handle(ctx context.Context, state State, s WorkflowState) (u update) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %s: %v", ErrStageCrash, state, r)
			e.logger.Error(ctx, "workflow stage panicked", map[string]interface{}{
				"state": string(state),
				"panic": fmt.Sprint(r),
			})
			u = e.crashed(state, s, err)
		}
	}()

	switch state {
	case StatePlan:
		return e.plan(ctx, s)
	case StateGenerate:
		return e.generate(ctx, s)
	case StateExecute:
		return e.execute(ctx, s)
	case StateHeal:
		return e.heal(ctx, s)
	case StateValidate:
		return e.validate(ctx, s)
	}
	return update{}
}

// crashed builds the update for a handler that panicked.
func (e *Engine) crashed(state State, s WorkflowState, err error) update {
	u := update{currentStep: failedStep(state)}
	switch state {
	case StatePlan:
		u.fatal = stageError(KindPlanning, state, err)
	case StateGenerate:
		u.errors = []*StageError{stageError(KindGeneration, state, err)}
	case StateExecute:
		u.errors = []*StageError{stageError(KindExecution, state, err)}
		u.result = testrun.NewErrorResult(s.SessionID, planID(s.Plan), err.Error())
		u.executed = true
	case StateHeal:
		u.errors = []*StageError{stageError(KindHealing, state, err)}
		retry := s.RetryCount + 1
		u.retryCount = &retry
	case StateValidate:
		u.errors = []*StageError{stageError(KindValidation, state, err)}
	}
	return u
}

func planID(p *testplan.TestPlan) string {
	if p == nil {
		return ""
	}
	return p.ID
}
