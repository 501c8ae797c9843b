// Package planner turns a natural-language request into a test plan grounded
// in the elements of the target page.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/testpilot/internal/idgen"
	"github.com/hairizuan-noorazman/testpilot/internal/promptsafe"
	"github.com/hairizuan-noorazman/testpilot/llm"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/pageanalysis"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// ErrPlanningFailed is returned when no plan could be produced. It is the only
// fatal error of a run.
var ErrPlanningFailed = errors.New("planning failed")

const planTemperature = 0.1

// Planner is the plan synthesizer.
type Planner struct {
	analyzer pageanalysis.Analyzer
	client   llm.Client
	limits   promptsafe.Limits
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Planner)

func WithLimits(l promptsafe.Limits) Option {
	return func(p *Planner) { p.limits = l }
}

func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func New(analyzer pageanalysis.Analyzer, client llm.Client, log logger.Logger, opts ...Option) *Planner {
	p := &Planner{
		analyzer: analyzer,
		client:   client,
		limits:   promptsafe.DefaultLimits(),
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze returns the page analysis used to ground plans. It never fails.
func (p *Planner) Analyze(ctx context.Context, req testrun.Request) *pageanalysis.PageAnalysis {
	analysis, err := p.analyzer.Analyze(ctx, req.URL, req.IsHeadless())
	if err != nil || analysis == nil {
		p.logger.Warn(ctx, "page analysis failed, using fallback context", map[string]interface{}{
			"url":   req.URL,
			"error": fmt.Sprint(err),
		})
		return pageanalysis.FallbackAnalysis(req.URL, err)
	}
	return analysis
}

// Plan creates a test plan for req. Malformed steps and assertions in the
// model output are defaulted or dropped; only a failed model call or an
// undecodable answer is an error.
func (p *Planner) Plan(ctx context.Context, req testrun.Request) (*testplan.TestPlan, error) {
	if err := p.limits.CheckInstruction(req.Instruction); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlanningFailed, err)
	}

	p.logger.Info(ctx, "creating test plan", map[string]interface{}{
		"instruction": req.Instruction,
		"url":         req.URL,
	})

	analysis := p.Analyze(ctx, req)
	temperature := planTemperature

	var out planOutput
	err := llm.CompleteJSON(ctx, p.client, llm.Request{
		System:      buildSystemPrompt(),
		Prompt:      buildUserPrompt(req.Instruction, req.URL, pageanalysis.FormatForPrompt(analysis)),
		Temperature: &temperature,
	}, &out)
	if err != nil {
		p.logger.Error(ctx, "failed to create test plan", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrPlanningFailed, err)
	}

	plan := p.convert(ctx, out, req, analysis)
	p.logger.Info(ctx, "test plan created", map[string]interface{}{
		"plan_id":    plan.ID,
		"steps":      len(plan.Steps),
		"assertions": len(plan.Assertions),
	})
	return plan, nil
}

func (p *Planner) convert(ctx context.Context, out planOutput, req testrun.Request, analysis *pageanalysis.PageAnalysis) *testplan.TestPlan {
	now := p.now()
	plan := &testplan.TestPlan{
		ID:          idgen.NewPlanID(now),
		Name:        strings.TrimSpace(out.Name),
		Description: strings.TrimSpace(out.Description),
		URL:         req.URL,
		Steps:       []testplan.TestStep{},
		Assertions:  []testplan.Assertion{},
		TestData:    out.TestData,
		Tags:        []string{},
		CreatedAt:   now,
	}
	if plan.Name == "" {
		plan.Name = defaultName(req.Instruction)
	}
	if plan.Description == "" {
		plan.Description = req.Instruction
	}
	for _, tag := range out.Tags {
		if t := strings.TrimSpace(string(tag)); t != "" {
			plan.Tags = append(plan.Tags, t)
		}
	}

	known := make(map[string]bool)
	if !analysis.Fallback {
		for _, s := range analysis.Selectors() {
			known[s] = true
		}
	}

	for i, entry := range out.Steps {
		var raw stepOutput
		if err := json.Unmarshal(entry, &raw); err != nil {
			p.logger.Warn(ctx, "dropping undecodable step", map[string]interface{}{
				"step":  i + 1,
				"error": err.Error(),
			})
			continue
		}
		step, ok := p.convertStep(ctx, i+1, raw, req.URL)
		if !ok {
			continue
		}
		if step.Selector != "" && len(known) > 0 && !known[step.Selector] {
			p.logger.Debug(ctx, "step selector not present in page context", map[string]interface{}{
				"step":     i + 1,
				"selector": step.Selector,
			})
		}
		plan.Steps = append(plan.Steps, step)
	}

	for i, entry := range out.Assertions {
		var raw assertionOutput
		if err := json.Unmarshal(entry, &raw); err != nil {
			p.logger.Warn(ctx, "dropping undecodable assertion", map[string]interface{}{
				"assertion": i + 1,
				"error":     err.Error(),
			})
			continue
		}
		if a, ok := p.convertAssertion(ctx, i+1, raw); ok {
			plan.Assertions = append(plan.Assertions, a)
		}
	}
	return plan
}

func needsSelector(a testplan.Action) bool {
	switch a {
	case testplan.ActionClick, testplan.ActionType, testplan.ActionSelect, testplan.ActionHover:
		return true
	}
	return false
}

func (p *Planner) convertStep(ctx context.Context, n int, raw stepOutput, planURL string) (testplan.TestStep, bool) {
	action, known := testplan.NormalizeAction(string(raw.Action))
	if !known {
		p.logger.Warn(ctx, "unrecognized step action, using default", map[string]interface{}{
			"step":    n,
			"action":  string(raw.Action),
			"default": string(action),
		})
	}

	step := testplan.TestStep{
		Action:      action,
		Selector:    promptsafe.Field(string(raw.Selector)),
		Value:       string(raw.Value),
		Description: strings.TrimSpace(string(raw.Description)),
		WaitBefore:  raw.WaitBefore.ptr(),
		WaitAfter:   raw.WaitAfter.ptr(),
		Retry:       testplan.DefaultStepRetry,
	}
	if raw.Retry.set && raw.Retry.value > 0 {
		step.Retry = raw.Retry.value
	}

	if action == testplan.ActionNavigate && step.Value == "" {
		step.Value = step.Selector
		if step.Value == "" {
			step.Value = planURL
		}
		step.Selector = ""
	}
	if needsSelector(action) && step.Selector == "" {
		p.logger.Warn(ctx, "dropping step without selector", map[string]interface{}{
			"step":   n,
			"action": string(action),
		})
		return testplan.TestStep{}, false
	}
	if step.Description == "" {
		step.Description = fmt.Sprintf("%s %s", action, strings.TrimSpace(step.Selector+" "+step.Value))
	}
	return step, true
}

func (p *Planner) convertAssertion(ctx context.Context, n int, raw assertionOutput) (testplan.Assertion, bool) {
	typ, known := testplan.NormalizeAssertionType(string(raw.Type))
	if !known {
		p.logger.Warn(ctx, "unrecognized assertion type, using default", map[string]interface{}{
			"assertion": n,
			"type":      string(raw.Type),
			"default":   string(typ),
		})
	}
	op, known := testplan.NormalizeOperator(string(raw.Operator))
	if !known {
		p.logger.Warn(ctx, "unrecognized assertion operator, using default", map[string]interface{}{
			"assertion": n,
			"operator":  string(raw.Operator),
		})
	}

	a := testplan.Assertion{
		Type:        typ,
		Selector:    promptsafe.Field(string(raw.Selector)),
		Expected:    string(raw.Expected),
		Operator:    op,
		Attribute:   strings.TrimSpace(string(raw.Attribute)),
		Description: strings.TrimSpace(string(raw.Description)),
	}

	switch typ {
	case testplan.AssertURL, testplan.AssertTitle:
	default:
		if a.Selector == "" {
			p.logger.Warn(ctx, "dropping assertion without selector", map[string]interface{}{
				"assertion": n,
				"type":      string(typ),
			})
			return testplan.Assertion{}, false
		}
	}
	if typ == testplan.AssertAttribute && a.Attribute == "" {
		p.logger.Warn(ctx, "dropping attribute assertion without attribute name", map[string]interface{}{"assertion": n})
		return testplan.Assertion{}, false
	}
	if a.Description == "" {
		a.Description = fmt.Sprintf("%s %s", typ, strings.TrimSpace(a.Selector+" "+a.Expected))
	}
	return a, true
}

func defaultName(instruction string) string {
	name := promptsafe.Name(instruction)
	if r := []rune(name); len(r) > 60 {
		name = strings.TrimSpace(string(r[:60]))
	}
	if name == "" {
		return "Generated test"
	}
	return name
}
