package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/testpilot/llm"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/pageanalysis"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

type htmlAnalyzer string

func (h htmlAnalyzer) Analyze(ctx context.Context, url string, headless bool) (*pageanalysis.PageAnalysis, error) {
	return pageanalysis.AnalyzeHTML(url, strings.NewReader(string(h)))
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(ctx context.Context, url string, headless bool) (*pageanalysis.PageAnalysis, error) {
	return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
}

func newRequest(instruction string) testrun.Request {
	return testrun.Request{Instruction: instruction, URL: "https://example.com"}.Normalize()
}

func TestPlan_UsesSelectorFromPageContext(t *testing.T) {
	page := htmlAnalyzer(`<html><head><title>Example</title></head><body>
<button data-testid="submit" id="go" class="btn primary">Go</button>
</body></html>`)

	var prompt string
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		prompt = req.Prompt
		// Pick the first selector the page context offers, the way a grounded
		// model is instructed to.
		selectors := pageanalysis.ParseSelectors(req.Prompt)
		require.NotEmpty(t, selectors)
		return `{"name":"Submit","description":"Click submit","steps":[{"action":"click","selector":"` +
			strings.ReplaceAll(selectors[0], `"`, `\"`) + `","description":"Click the submit button"}],"assertions":[],"tags":["smoke"]}`, nil
	})

	p := New(page, client, logger.NewTestLogger(), WithClock(fixedClock))
	plan, err := p.Plan(context.Background(), newRequest("Click the submit button"))
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, `[data-testid="submit"]`, plan.Steps[0].Selector)
	assert.Equal(t, testplan.ActionClick, plan.Steps[0].Action)
	assert.Equal(t, testplan.DefaultStepRetry, plan.Steps[0].Retry)
	assert.Equal(t, "https://example.com", plan.URL)
	assert.Equal(t, fixedClock(), plan.CreatedAt)
	assert.Equal(t, "test_"+"1767323045000000006", plan.ID)
	assert.Equal(t, []string{"smoke"}, plan.Tags)
	assert.Contains(t, prompt, "<instruction>Click the submit button</instruction>")
	assert.Contains(t, prompt, "<page_context>")
}

func TestPlan_NormalizesModelOutput(t *testing.T) {
	answer := "```json\n" + `{
  "name": "Checkout",
  "steps": [
    {"action": "go to", "value": "https://example.com/cart"},
    {"action": "enter", "selector": "#zip", "value": 12345, "wait_after": "500"},
    {"action": "press", "selector": "#pay"},
    {"action": "teleport", "selector": "#somewhere", "description": "Unknown action"},
    {"action": "click"},
    {"action": "Scroll", "value": "bottom", "retry": 5}
  ],
  "assertions": [
    {"type": "is visible", "selector": ".receipt"},
    {"type": "contains text", "selector": ".total", "expected": "$10", "operator": "includes"},
    {"type": "page url", "expected": "/done", "operator": "weird"},
    {"type": "smell", "selector": ".x"},
    {"type": "text"},
    {"type": "attribute", "selector": "a"}
  ],
  "test_data": {"zip": "12345"},
  "tags": ["checkout", ""]
}` + "\n```"

	log := logger.NewTestLogger()
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) { return answer, nil })
	p := New(htmlAnalyzer("<html><body></body></html>"), client, log, WithClock(fixedClock))

	plan, err := p.Plan(context.Background(), newRequest("Buy the item"))
	require.NoError(t, err)

	require.Len(t, plan.Steps, 5)
	assert.Equal(t, testplan.ActionNavigate, plan.Steps[0].Action)
	assert.Equal(t, "https://example.com/cart", plan.Steps[0].Value)

	assert.Equal(t, testplan.ActionType, plan.Steps[1].Action)
	assert.Equal(t, "12345", plan.Steps[1].Value)
	require.NotNil(t, plan.Steps[1].WaitAfter)
	assert.Equal(t, 500, *plan.Steps[1].WaitAfter)
	assert.Nil(t, plan.Steps[1].WaitBefore)

	assert.Equal(t, testplan.ActionClick, plan.Steps[2].Action)

	// Unknown action defaults to click and processing continues.
	assert.Equal(t, testplan.ActionClick, plan.Steps[3].Action)
	assert.Equal(t, "#somewhere", plan.Steps[3].Selector)

	assert.Equal(t, testplan.ActionScroll, plan.Steps[4].Action)
	assert.Equal(t, 5, plan.Steps[4].Retry)

	require.Len(t, plan.Assertions, 4)
	assert.Equal(t, testplan.AssertVisible, plan.Assertions[0].Type)
	assert.Equal(t, testplan.AssertText, plan.Assertions[1].Type)
	assert.Equal(t, testplan.OpContains, plan.Assertions[1].Operator)
	assert.Equal(t, testplan.AssertURL, plan.Assertions[2].Type)
	assert.Equal(t, testplan.OpEquals, plan.Assertions[2].Operator)
	assert.Equal(t, testplan.AssertVisible, plan.Assertions[3].Type)

	assert.Equal(t, map[string]interface{}{"zip": "12345"}, plan.TestData)
	assert.Equal(t, []string{"checkout"}, plan.Tags)
	assert.Equal(t, "Buy the item", plan.Description)

	assert.True(t, log.HasMessage("warn", "unrecognized step action, using default"))
	assert.True(t, log.HasMessage("warn", "unrecognized assertion type, using default"))
	assert.True(t, log.HasMessage("warn", "unrecognized assertion operator, using default"))
	assert.True(t, log.HasMessage("warn", "dropping step without selector"))
	assert.True(t, log.HasMessage("warn", "dropping assertion without selector"))
	assert.True(t, log.HasMessage("warn", "dropping attribute assertion without attribute name"))
}

func TestPlan_ModelFailureIsFatal(t *testing.T) {
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		return "", errors.New("throttled")
	})
	p := New(htmlAnalyzer("<html></html>"), client, logger.NewTestLogger())

	_, err := p.Plan(context.Background(), newRequest("anything"))
	assert.ErrorIs(t, err, ErrPlanningFailed)
	assert.Contains(t, err.Error(), "throttled")
}

func TestPlan_UndecodableAnswerIsFatal(t *testing.T) {
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		return "Sorry, I can't do that.", nil
	})
	p := New(htmlAnalyzer("<html></html>"), client, logger.NewTestLogger())

	_, err := p.Plan(context.Background(), newRequest("anything"))
	assert.ErrorIs(t, err, ErrPlanningFailed)
	assert.ErrorIs(t, err, llm.ErrNoJSON)
}

func TestPlan_DropsUndecodableEntries(t *testing.T) {
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		return `{"name":"Mixed","steps":[` +
			`{"action":"click","selector":"[data-testid=\"submit\"]"},` +
			`"click the other button",` +
			`["nested"],` +
			`{"action":"type","selector":"#email","value":"a@b.c"}` +
			`],"assertions":[42,{"type":"visible","selector":"#done"}]}`, nil
	})
	log := logger.NewTestLogger()
	p := New(htmlAnalyzer("<html></html>"), client, log)

	plan, err := p.Plan(context.Background(), newRequest("Submit the form"))
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, `[data-testid="submit"]`, plan.Steps[0].Selector)
	assert.Equal(t, testplan.ActionType, plan.Steps[1].Action)
	require.Len(t, plan.Assertions, 1)
	assert.Equal(t, "#done", plan.Assertions[0].Selector)
	assert.True(t, log.HasMessage("warn", "dropping undecodable step"))
	assert.True(t, log.HasMessage("warn", "dropping undecodable assertion"))
}

func TestPlan_NonArrayStepsYieldEmptyPlan(t *testing.T) {
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		return `{"name":"Odd","steps":"click submit","assertions":{"type":"visible"}}`, nil
	})
	p := New(htmlAnalyzer("<html></html>"), client, logger.NewTestLogger())

	plan, err := p.Plan(context.Background(), newRequest("Submit the form"))
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
	assert.Empty(t, plan.Assertions)
}

func TestPlan_InstructionTooLong(t *testing.T) {
	called := false
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		called = true
		return "{}", nil
	})
	p := New(htmlAnalyzer("<html></html>"), client, logger.NewTestLogger())

	_, err := p.Plan(context.Background(), newRequest(strings.Repeat("a", 6000)))
	assert.ErrorIs(t, err, ErrPlanningFailed)
	assert.False(t, called)
}

func TestPlan_AnalysisFailureUsesFallbackContext(t *testing.T) {
	var prompt string
	client := llm.FuncClient(func(ctx context.Context, req llm.Request) (string, error) {
		prompt = req.Prompt
		return `{"steps":[{"action":"click","selector":"button[type=\"submit\"]"}]}`, nil
	})
	log := logger.NewTestLogger()
	p := New(failingAnalyzer{}, client, log)

	plan, err := p.Plan(context.Background(), newRequest("Submit the form"))
	require.NoError(t, err)

	assert.Contains(t, prompt, pageanalysis.FallbackTitle)
	assert.Equal(t, "Submit the form", plan.Name)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "click button[type=\"submit\"]", plan.Steps[0].Description)
	assert.True(t, log.HasMessage("warn", "page analysis failed, using fallback context"))
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "Generated test", defaultName("  "))
	assert.Equal(t, "Log in", defaultName("Log in"))
	assert.Len(t, []rune(defaultName(strings.Repeat("a", 100))), 60)
}

func TestFlexTypes(t *testing.T) {
	var out stepOutput
	require.NoError(t, llm.DecodeJSON(`{"action":"type","value":true,"wait_before":250.0,"retry":"x"}`, &out))
	assert.Equal(t, flexString("true"), out.Value)
	assert.Equal(t, 250, *out.WaitBefore.ptr())
	assert.False(t, out.Retry.set)
	assert.Nil(t, out.WaitAfter.ptr())
}
