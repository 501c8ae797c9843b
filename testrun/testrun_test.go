package testrun

import (
	"testing"
	"time"

	"github.com/hairizuan-noorazman/testpilot/internal/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestNormalize_Defaults(t *testing.T) {
	r := Request{Instruction: " Click the submit button ", URL: "https://example.com"}.Normalize()

	assert.Equal(t, "Click the submit button", r.Instruction)
	assert.Equal(t, BrowserChromium, r.Browser)
	require.NotNil(t, r.Viewport)
	assert.Equal(t, Viewport{Width: 1280, Height: 720}, *r.Viewport)
	assert.Equal(t, 30000, r.Timeout)
	assert.True(t, r.IsHeadless())
	assert.True(t, idgen.IsValidSessionID(r.SessionID))
}

func TestRequestNormalize_KeepsExplicitValues(t *testing.T) {
	headless := false
	vp := &Viewport{Width: 800, Height: 600}
	in := Request{
		Instruction: "x",
		URL:         "https://example.com",
		Browser:     BrowserFirefox,
		Viewport:    vp,
		Timeout:     5000,
		Headless:    &headless,
		SessionID:   "fixed",
	}

	r := in.Normalize()
	assert.Equal(t, BrowserFirefox, r.Browser)
	assert.Equal(t, 800, r.Viewport.Width)
	assert.Equal(t, 5000, r.Timeout)
	assert.False(t, r.IsHeadless())
	assert.Equal(t, "fixed", r.SessionID)

	// Normalized copies do not alias the caller's pointers.
	vp.Width = 1
	assert.Equal(t, 800, r.Viewport.Width)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"valid", Request{Instruction: "go", URL: "https://example.com"}, nil},
		{"missing instruction", Request{URL: "https://example.com"}, ErrInvalidInstruction},
		{"relative url", Request{Instruction: "go", URL: "/login"}, ErrInvalidURL},
		{"ftp url", Request{Instruction: "go", URL: "ftp://example.com"}, ErrInvalidURL},
		{"bad browser", Request{Instruction: "go", URL: "http://a.b", Browser: "netscape"}, ErrInvalidBrowser},
		{"bad viewport", Request{Instruction: "go", URL: "http://a.b", Viewport: &Viewport{}}, ErrInvalidViewport},
		{"negative timeout", Request{Instruction: "go", URL: "http://a.b", Timeout: -1}, ErrInvalidTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequestTimeoutDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, Request{}.TimeoutDuration())
	assert.Equal(t, 1500*time.Millisecond, Request{Timeout: 1500}.TimeoutDuration())
}

func TestFailureResults(t *testing.T) {
	r := NewNoResult()
	assert.Equal(t, "error_no_result", r.ID)
	assert.Equal(t, "unknown", r.PlanID)
	assert.False(t, r.Success)
	assert.Equal(t, NoResultError, r.Error)
	assert.Empty(t, r.Steps)

	e := NewErrorResult("sess", "", "boom")
	assert.Equal(t, "error_sess", e.ID)
	assert.Equal(t, "unknown", e.PlanID)
	assert.Equal(t, "boom", e.Error)
}

func TestCountSteps(t *testing.T) {
	r := &TestResult{Steps: []StepResult{{Success: true}, {Success: false, Error: "x"}, {Success: true}}}

	passed, failed := r.CountSteps()
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, failed)
	assert.Len(t, r.FailedStepResults(), 1)
}
