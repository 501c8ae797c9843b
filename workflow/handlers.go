package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/executor"
	"github.com/hairizuan-noorazman/testpilot/healer"
	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/hairizuan-noorazman/testpilot/validator"
)

func (e *Engine) plan(ctx context.Context, s WorkflowState) update {
	e.logger.Info(ctx, "creating test plan", nil)

	plan, err := e.planner.Plan(ctx, s.Request)
	if err == nil && plan == nil {
		err = ErrNoPlan
	}
	if err != nil {
		return update{
			currentStep: failedStep(StatePlan),
			fatal:       stageError(KindPlanning, StatePlan, err),
		}
	}
	return update{plan: plan, currentStep: stepPlanningComplete}
}

func (e *Engine) generate(ctx context.Context, s WorkflowState) update {
	if s.Plan == nil {
		return update{
			currentStep: failedStep(StateGenerate),
			errors:      []*StageError{stageError(KindGeneration, StateGenerate, ErrNoPlan)},
		}
	}
	e.logger.Info(ctx, "generating test code", map[string]interface{}{"plan_id": s.Plan.ID})

	out := e.generator.Generate(ctx, s.Plan)
	u := update{code: &out.Code, currentStep: stepGenerationComplete}
	if out.Cause != nil {
		u.errors = []*StageError{stageError(KindGeneration, StateGenerate, out.Cause)}
	}
	if out.Code == "" {
		u.currentStep = failedStep(StateGenerate)
		u.errors = append(u.errors, stageError(KindGeneration, StateGenerate, ErrNoCode))
	}
	return u
}

func (e *Engine) execute(ctx context.Context, s WorkflowState) update {
	e.logger.Info(ctx, "executing test", map[string]interface{}{
		"attempt":     s.Attempts + 1,
		"retry_count": s.RetryCount,
	})

	result := e.executor.Execute(ctx, s.Code, s.Request, executor.Options{Plan: s.Plan})
	if result == nil {
		return update{
			currentStep: failedStep(StateExecute),
			errors:      []*StageError{stageError(KindExecution, StateExecute, ErrNoResult)},
			executed:    true,
		}
	}

	html := result.PageHTML
	u := update{
		result:      result,
		pageHTML:    &html,
		currentStep: stepExecutionComplete,
		executed:    true,
	}
	if !result.Success {
		u.currentStep = failedStep(StateExecute)
		u.errors = []*StageError{stageError(executionKind(result), StateExecute, errors.New(result.Error))}
	}
	return u
}

// executionKind separates failures to obtain a browser from failures of the
// test itself.
func executionKind(r *testrun.TestResult) ErrorKind {
	if strings.HasPrefix(r.Error, executor.ErrSessionUnavailable.Error()) {
		return KindSessionProvider
	}
	return KindExecution
}

func (e *Engine) heal(ctx context.Context, s WorkflowState) update {
	// Every visit to heal consumes one retry, whatever the outcome.
	retry := s.RetryCount + 1
	u := update{retryCount: &retry, currentStep: stepHealingComplete}

	if s.Result == nil {
		u.currentStep = failedStep(StateHeal)
		u.errors = []*StageError{stageError(KindHealing, StateHeal, ErrNoResult)}
		return u
	}

	out := e.healer.Heal(ctx, healer.Request{
		Code:     s.Code,
		Error:    s.Result.Error,
		PageHTML: s.PageHTML,
		URL:      s.Request.URL,
	})
	e.logger.Info(ctx, "healing attempt finished", map[string]interface{}{
		"category":    string(out.Category),
		"strategy":    string(out.Strategy),
		"retry_count": retry,
	})

	if out.Code != "" {
		u.code = &out.Code
	}
	if out.Cause != nil {
		u.errors = []*StageError{stageError(KindHealing, StateHeal, out.Cause)}
	}
	if out.Strategy == healer.StrategyUnchanged {
		u.currentStep = failedStep(StateHeal)
	}
	return u
}

func (e *Engine) validate(ctx context.Context, s WorkflowState) update {
	if s.Result == nil {
		return update{
			currentStep: failedStep(StateValidate),
			errors:      []*StageError{stageError(KindValidation, StateValidate, ErrNoResult)},
		}
	}

	validated := e.validator.Validate(ctx, s.Result)
	if validated == nil {
		return update{
			currentStep: failedStep(StateValidate),
			errors:      []*StageError{stageError(KindValidation, StateValidate, ErrNoResult)},
		}
	}

	u := update{result: validated, currentStep: stepValidationComplete}
	if validated.Analysis == validator.AnalysisUnavailable {
		u.errors = []*StageError{stageError(KindAnalysis, StateValidate, errors.New(validator.AnalysisUnavailable))}
	}
	return u
}
