package pageanalysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestReplacement(t *testing.T) {
	a, err := AnalyzeHTML("https://example.com/login", strings.NewReader(loginPage))
	require.NoError(t, err)

	tests := []struct {
		broken string
		want   string
		ok     bool
	}{
		{broken: "#go-button", want: `[data-testid="submit"]`, ok: true},
		{broken: ".cancelBtn", want: ".btn.secondary", ok: true},
		{broken: "#email-field", want: "#email", ok: true},
		{broken: "text=Terms", want: `a:has-text("Terms")`, ok: true},
		{broken: "#nonexistent", ok: false},
		{broken: "#email", ok: false},
		{broken: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.broken, func(t *testing.T) {
			el, ok := SuggestReplacement(a, tt.broken)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, el.Selector)
			}
		})
	}
}

func TestSuggestReplacement_FallbackAnalysis(t *testing.T) {
	_, ok := SuggestReplacement(FallbackAnalysis("https://example.com", nil), "#submit")
	assert.False(t, ok)

	_, ok = SuggestReplacement(nil, "#submit")
	assert.False(t, ok)
}

func TestIdentityWords(t *testing.T) {
	assert.Equal(t, map[string]bool{"submit": true, "button": true}, identityWords(`#submitButton`))
	assert.Equal(t, map[string]bool{"login": true, "submit": true}, identityWords(`[data-testid="login-submit"]`))
	assert.Empty(t, identityWords("#a"))
}
