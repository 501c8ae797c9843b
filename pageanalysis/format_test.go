package pageanalysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForPrompt(t *testing.T) {
	a, err := AnalyzeHTML("https://example.com/login", strings.NewReader(loginPage))
	require.NoError(t, err)

	out := FormatForPrompt(a)

	assert.True(t, strings.HasPrefix(out, "Page URL: https://example.com/login\nPage Title: Acme Login\n"))
	assert.Contains(t, out, "Description: Sign in to Acme\n")
	assert.Contains(t, out, "FORMS FOUND:\n\nForm 1:\n  ID: login\n  Inputs:\n")
	assert.Contains(t, out, "    - email input (name: email) [placeholder: Email] -> #email\n")
	assert.Contains(t, out, "  Submit buttons:\n    - Sign in -> [data-testid=\"login-submit\"]")
	assert.Contains(t, out, "KEY BUTTONS:\n")
	assert.Contains(t, out, "  - Go -> [data-testid=\"submit\"]")
	assert.NotContains(t, out, "INPUT FIELDS:")
	assert.Contains(t, out, "NAVIGATION LINKS:\n  - Home -> a:has-text(\"Home\")")
	assert.True(t, strings.HasSuffix(out, "PAGE STRUCTURE:\n"+a.PageStructure))
}

func TestFormatForPrompt_InputsOutsideForms(t *testing.T) {
	a := &PageAnalysis{
		URL:   "https://example.com",
		Title: "Search",
		Inputs: []PageElement{
			{Tag: "input", Type: "search", Placeholder: "Find", Selector: "#q"},
			{Tag: "textarea", Selector: "textarea"},
		},
		PageStructure: "{}",
	}

	out := FormatForPrompt(a)
	assert.Contains(t, out, "INPUT FIELDS:\n  - search [Find] -> #q\n  - text -> textarea")
}

func TestFormatForPrompt_Caps(t *testing.T) {
	a := &PageAnalysis{PageStructure: "{}"}
	form := Form{}
	for i := 0; i < 8; i++ {
		form.Inputs = append(form.Inputs, PageElement{Type: "text", Selector: "#in" + string(rune('a'+i))})
		form.Buttons = append(form.Buttons, PageElement{Text: "b", Selector: "#b" + string(rune('a'+i))})
	}
	a.Forms = []Form{form}
	for i := 0; i < 15; i++ {
		a.Buttons = append(a.Buttons, PageElement{Text: strings.Repeat("x", 80), Selector: "#k" + string(rune('a'+i))})
	}

	sels := ParseSelectors(FormatForPrompt(a))
	assert.Len(t, sels, 5+2+10)
	assert.NotContains(t, FormatForPrompt(a), strings.Repeat("x", 51))
}

func TestParseSelectors_RoundTrip(t *testing.T) {
	a := &PageAnalysis{
		URL:   "https://example.com",
		Title: "Tricky",
		Forms: []Form{{
			Inputs:  []PageElement{{Type: "text", Name: "q -> r", Selector: `[data-testid="search box"]`}},
			Buttons: []PageElement{{Text: "Next -> page", Selector: `button:has-text("Next -> page")`}},
		}},
		Buttons: []PageElement{
			{Text: `Say "hi"`, Selector: `button:has-text("Say \"hi\"")`},
			{Text: "multi\nline label", Selector: `[id="1st"]`},
			{Text: "", Selector: "#no-text"},
		},
		Navigation:    []PageElement{{Text: "Docs", Selector: ".nav-link.active"}},
		PageStructure: "{\n  \"x\": \"- fake -> #structure\"\n}",
	}

	got := ParseSelectors(FormatForPrompt(a))
	assert.Equal(t, []string{
		`[data-testid="search box"]`,
		`button:has-text("Next -> page")`,
		`button:has-text("Say \"hi\"")`,
		`[id="1st"]`,
		".nav-link.active",
	}, got)
}

func TestParseSelectors_RoundTripLineBreaks(t *testing.T) {
	a, err := AnalyzeHTML("https://example.com", strings.NewReader(
		"<html><body><button data-testid=\"sub\nmit\">Go</button><div id=\"a\r\nb\"><input name=\"q\"></div>"+
			"<button id=\"1\nst\">Next</button></body></html>"))
	require.NoError(t, err)

	var want []string
	for _, b := range a.Buttons {
		want = append(want, b.Selector)
	}
	require.NotEmpty(t, want)

	got := ParseSelectors(FormatForPrompt(a))
	for _, sel := range want {
		assert.NotContains(t, sel, "\n")
		assert.Contains(t, got, sel)
	}
	assert.Contains(t, got, `[data-testid="sub\a mit"]`)
}

func TestParseSelectors_FromAnalyzedPage(t *testing.T) {
	a, err := AnalyzeHTML("https://example.com/login", strings.NewReader(loginPage))
	require.NoError(t, err)

	got := ParseSelectors(FormatForPrompt(a))
	for _, sel := range []string{"#email", `[data-testid="login-submit"]`, `[data-testid="submit"]`, ".btn.secondary", `a:has-text("Home")`} {
		assert.Contains(t, got, sel)
	}
}
