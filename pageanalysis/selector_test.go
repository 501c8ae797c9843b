package pageanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSelector(t *testing.T) {
	tests := []struct {
		name string
		el   PageElement
		want string
	}{
		{
			name: "test id wins over id",
			el:   PageElement{Tag: "button", TestID: "submit", ID: "go", Classes: []string{"btn"}, Text: "Go"},
			want: `[data-testid="submit"]`,
		},
		{
			name: "id wins over classes",
			el:   PageElement{Tag: "button", ID: "go", Classes: []string{"btn", "primary"}},
			want: "#go",
		},
		{
			name: "id that is not a css identifier",
			el:   PageElement{Tag: "div", ID: "1st"},
			want: `[id="1st"]`,
		},
		{
			name: "line breaks in a test id are escaped",
			el:   PageElement{Tag: "button", TestID: "sub\nmit\r"},
			want: `[data-testid="sub\a mit\d "]`,
		},
		{
			name: "joined class list",
			el:   PageElement{Tag: "div", Classes: []string{"card", "card-active"}},
			want: ".card.card-active",
		},
		{
			name: "invalid class tokens are skipped",
			el:   PageElement{Tag: "div", Classes: []string{"md:flex", "card"}},
			want: ".card",
		},
		{
			name: "button text truncated to 30",
			el:   PageElement{Tag: "button", Text: "Continue to the secure checkout page now"},
			want: `button:has-text("Continue to the secure checkout")`,
		},
		{
			name: "link text",
			el:   PageElement{Tag: "a", Text: "  About\n  us "},
			want: `a:has-text("About us")`,
		},
		{
			name: "quotes escaped",
			el:   PageElement{Tag: "button", Text: `Say "hi"`},
			want: `button:has-text("Say \"hi\"")`,
		},
		{
			name: "text ignored for other tags",
			el:   PageElement{Tag: "span", Text: "hello"},
			want: "span",
		},
		{
			name: "tag name last resort",
			el:   PageElement{Tag: "INPUT"},
			want: "input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeSelector(tt.el))
		})
	}
}

func TestTruncateIsRuneAware(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo wörld", 5))
	assert.Equal(t, "abc", truncate("abc", 10))
}
