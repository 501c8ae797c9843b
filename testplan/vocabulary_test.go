package testplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAction(t *testing.T) {
	tests := []struct {
		token string
		want  Action
		known bool
	}{
		{"click", ActionClick, true},
		{"  CLICK ", ActionClick, true},
		{"go to", ActionNavigate, true},
		{"Go-To", ActionNavigate, true},
		{"fill", ActionType, true},
		{"enter", ActionType, true},
		{"input", ActionType, true},
		{"press", ActionClick, true},
		{"tap", ActionClick, true},
		{"mouseover", ActionHover, true},
		{"verify", ActionAssert, true},
		{"frobnicate", ActionClick, false},
		{"", ActionClick, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, known := NormalizeAction(tt.token)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestNormalizeAssertionType(t *testing.T) {
	tests := []struct {
		token string
		want  AssertionType
		known bool
	}{
		{"visible", AssertVisible, true},
		{"Text", AssertText, true},
		{"contains text", AssertText, true},
		{"page_title", AssertTitle, true},
		{"current-url", AssertURL, true},
		{"attr", AssertAttribute, true},
		{"sparkles", AssertVisible, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, known := NormalizeAssertionType(tt.token)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestNormalizeOperator(t *testing.T) {
	tests := []struct {
		token string
		want  Operator
		known bool
	}{
		{"", OpEquals, true},
		{"equals", OpEquals, true},
		{"includes", OpContains, true},
		{">", OpGreater, true},
		{"less than", OpLess, true},
		{"roughly", OpEquals, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, known := NormalizeOperator(tt.token)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestPlanValidate(t *testing.T) {
	valid := func() *TestPlan {
		return &TestPlan{
			ID:   "test_1",
			Name: "login",
			URL:  "https://example.com",
			Steps: []TestStep{
				{Action: ActionClick, Selector: "#go", Description: "click go"},
			},
			Assertions: []Assertion{
				{Type: AssertVisible, Selector: "#done", Operator: OpEquals},
			},
		}
	}

	assert.NoError(t, valid().Validate())

	p := valid()
	p.URL = ""
	assert.ErrorIs(t, p.Validate(), ErrMissingURL)

	p = valid()
	p.Name = ""
	assert.ErrorIs(t, p.Validate(), ErrMissingName)

	p = valid()
	p.Steps[0].Action = "dance"
	assert.ErrorIs(t, p.Validate(), ErrInvalidAction)

	p = valid()
	p.Assertions[0].Type = "smell"
	assert.ErrorIs(t, p.Validate(), ErrInvalidType)

	p = valid()
	p.Assertions[0].Operator = "approx"
	assert.ErrorIs(t, p.Validate(), ErrInvalidOperand)
}

func TestPlanStep(t *testing.T) {
	p := &TestPlan{Steps: []TestStep{{Action: ActionClick}, {Action: ActionType}}}

	s, ok := p.Step(2)
	assert.True(t, ok)
	assert.Equal(t, ActionType, s.Action)

	_, ok = p.Step(0)
	assert.False(t, ok)
	_, ok = p.Step(3)
	assert.False(t, ok)
}

func TestStepAttempts(t *testing.T) {
	assert.Equal(t, 1, TestStep{}.Attempts())
	assert.Equal(t, 3, TestStep{Retry: DefaultStepRetry}.Attempts())
}
