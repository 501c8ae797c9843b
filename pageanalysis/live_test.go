package pageanalysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/testpilot/browser"
	"github.com/hairizuan-noorazman/testpilot/browser/browsertest"
	"github.com/hairizuan-noorazman/testpilot/logger"
)

func submitPage() map[string]interface{} {
	return map[string]interface{}{
		"url":   "https://example.com/",
		"title": "Example",
		"buttons": []map[string]interface{}{
			{"tag": "button", "text": "Go", "testId": "submit", "id": "go", "visible": true},
		},
		"structure": map[string]interface{}{"hasMain": true, "buttonCount": 1},
	}
}

func opener(page *browsertest.Page) Opener {
	return func(ctx context.Context, headless bool) (browser.Page, error) {
		return page, nil
	}
}

func TestLiveAnalyzer_Analyze(t *testing.T) {
	page := browsertest.NewPage()
	page.EvaluateResult = submitPage()

	a := NewLiveAnalyzer(opener(page), logger.NewTestLogger(), WithSettleDelay(0))
	analysis, err := a.Analyze(context.Background(), "https://example.com", true)
	require.NoError(t, err)

	require.Len(t, analysis.Buttons, 1)
	assert.Equal(t, `[data-testid="submit"]`, analysis.Buttons[0].Selector)
	assert.True(t, analysis.Buttons[0].IsInteractive)
	assert.Contains(t, analysis.PageStructure, `"hasMain": true`)
	assert.True(t, page.Closed)
}

func TestLiveAnalyzer_EscalatesNavigation(t *testing.T) {
	page := browsertest.NewPage()
	page.EvaluateResult = submitPage()
	page.NavigationErrors = []error{errors.New("timeout 60000ms"), errors.New("timeout 90000ms")}
	log := logger.NewTestLogger()

	a := NewLiveAnalyzer(opener(page), log, WithSettleDelay(0))
	_, err := a.Analyze(context.Background(), "https://example.com", true)
	require.NoError(t, err)

	warnings := log.EntriesAt("warn")
	require.Len(t, warnings, 2)
	assert.Equal(t, "domcontentloaded", warnings[0].Fields["wait_until"])
	assert.Equal(t, "commit", warnings[1].Fields["wait_until"])
}

func TestLiveAnalyzer_ReturnsLastNavigationError(t *testing.T) {
	last := errors.New("net::ERR_NAME_NOT_RESOLVED")
	page := browsertest.NewPage()
	page.NavigationErrors = []error{errors.New("first"), errors.New("second"), last}

	a := NewLiveAnalyzer(opener(page), logger.NewTestLogger(), WithSettleDelay(0))
	_, err := a.Analyze(context.Background(), "https://nope.invalid", true)
	assert.ErrorIs(t, err, ErrNavigationFailed)
	assert.ErrorIs(t, err, last)
	assert.True(t, page.Closed)
}

func TestChain_FallsBackInOrder(t *testing.T) {
	broken := browsertest.NewPage()
	broken.Fail("goto", errors.New("boom"))
	working := browsertest.NewPage()
	working.EvaluateResult = submitPage()

	chain := NewChain(logger.NewTestLogger(), time.Second,
		NewLiveAnalyzer(opener(broken), logger.NewTestLogger(), WithSettleDelay(0)),
		NewLiveAnalyzer(opener(working), logger.NewTestLogger(), WithSettleDelay(0)),
	)

	a, err := chain.Analyze(context.Background(), "https://example.com", true)
	require.NoError(t, err)
	assert.False(t, a.Fallback)
	assert.Equal(t, "Example", a.Title)
}

func TestChain_TotalFailureReturnsFallback(t *testing.T) {
	broken := browsertest.NewPage()
	broken.Fail("goto", errors.New("connection refused"))

	chain := NewChain(logger.NewTestLogger(), 0,
		NewLiveAnalyzer(opener(broken), logger.NewTestLogger(), WithSettleDelay(0)),
	)

	a, err := chain.Analyze(context.Background(), "https://example.com", true)
	require.NoError(t, err)
	assert.True(t, a.Fallback)
	assert.Equal(t, FallbackTitle, a.Title)
	assert.Equal(t, "https://example.com", a.URL)
	assert.Contains(t, a.PageStructure, "connection refused")
	assert.Contains(t, a.PageStructure, `"fallback": true`)

	assert.Equal(t, []string{
		"button[type='submit']",
		"input[type='text']",
		"input[type='password']",
		"a",
	}, a.Selectors())
}
