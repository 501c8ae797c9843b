package testplan

import (
	"errors"
	"time"
)

var (
	ErrMissingURL     = errors.New("plan url is required")
	ErrMissingName    = errors.New("plan name is required")
	ErrInvalidAction  = errors.New("invalid step action")
	ErrInvalidType    = errors.New("invalid assertion type")
	ErrInvalidOperand = errors.New("invalid assertion operator")
)

// DefaultStepRetry is the retry budget given to steps that do not specify one.
const DefaultStepRetry = 3

// TestStep is one action of a plan.
type TestStep struct {
	Action      Action `json:"action"`
	Selector    string `json:"selector,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description"`
	// WaitBefore and WaitAfter are durations in milliseconds.
	WaitBefore *int `json:"wait_before,omitempty"`
	WaitAfter  *int `json:"wait_after,omitempty"`
	Retry      int  `json:"retry"`
}

// Attempts returns the number of attempts the step is allowed.
func (s TestStep) Attempts() int {
	if s.Retry <= 0 {
		return 1
	}
	return s.Retry
}

// Assertion is a check performed after all steps of a plan.
type Assertion struct {
	Type        AssertionType `json:"type"`
	Selector    string        `json:"selector,omitempty"`
	Expected    string        `json:"expected"`
	Description string        `json:"description"`
	Operator    Operator      `json:"operator"`
	// Attribute names the attribute checked by AssertAttribute assertions.
	Attribute string `json:"attribute,omitempty"`
}

// TestPlan is the ordered list of steps and assertions describing a test.
// Plans are not modified after creation.
type TestPlan struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	URL         string                 `json:"url"`
	Steps       []TestStep             `json:"steps"`
	Assertions  []Assertion            `json:"assertions"`
	TestData    map[string]interface{} `json:"test_data,omitempty"`
	Tags        []string               `json:"tags"`
	CreatedAt   time.Time              `json:"created_at"`
}

func (p *TestPlan) Validate() error {
	if p.URL == "" {
		return ErrMissingURL
	}
	if p.Name == "" {
		return ErrMissingName
	}
	for _, s := range p.Steps {
		if !s.Action.IsValid() {
			return ErrInvalidAction
		}
	}
	for _, a := range p.Assertions {
		if !a.Type.IsValid() {
			return ErrInvalidType
		}
		if !a.Operator.IsValid() {
			return ErrInvalidOperand
		}
	}
	return nil
}

// Step returns the 1-based step n, or false when n is out of range.
func (p *TestPlan) Step(n int) (TestStep, bool) {
	if p == nil || n < 1 || n > len(p.Steps) {
		return TestStep{}, false
	}
	return p.Steps[n-1], true
}
