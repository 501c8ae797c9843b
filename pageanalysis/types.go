package pageanalysis

import (
	"context"
	"errors"
)

var (
	ErrNavigationFailed = errors.New("page navigation failed")
	ErrExtractFailed    = errors.New("page extraction failed")
	ErrUnexpectedStatus = errors.New("unexpected http status")
)

// Caps applied to extracted element lists.
const (
	MaxButtons    = 30
	MaxLinks      = 50
	MaxInputs     = 30
	MaxNavigation = 20
)

// FallbackTitle is the title of the analysis returned when a page could not be analyzed.
const FallbackTitle = "Page Analysis Failed - Using Fallback"

// Analyzer extracts a PageAnalysis from a URL.
type Analyzer interface {
	Analyze(ctx context.Context, url string, headless bool) (*PageAnalysis, error)
}

// PageElement is one DOM element with its computed selector.
type PageElement struct {
	Tag           string   `json:"tag"`
	Text          string   `json:"text,omitempty"`
	ID            string   `json:"id,omitempty"`
	Classes       []string `json:"classes"`
	TestID        string   `json:"data_testid,omitempty"`
	Name          string   `json:"name,omitempty"`
	Type          string   `json:"type,omitempty"`
	Placeholder   string   `json:"placeholder,omitempty"`
	Href          string   `json:"href,omitempty"`
	Role          string   `json:"role,omitempty"`
	AriaLabel     string   `json:"aria_label,omitempty"`
	Selector      string   `json:"selector"`
	IsVisible     bool     `json:"is_visible"`
	IsInteractive bool     `json:"is_interactive"`
}

type Form struct {
	ID      string        `json:"id,omitempty"`
	Name    string        `json:"name,omitempty"`
	Action  string        `json:"action,omitempty"`
	Method  string        `json:"method,omitempty"`
	Inputs  []PageElement `json:"inputs"`
	Buttons []PageElement `json:"buttons"`
}

// Structure summarizes the page layout.
type Structure struct {
	HasHeader   bool `json:"hasHeader"`
	HasNav      bool `json:"hasNav"`
	HasFooter   bool `json:"hasFooter"`
	HasMain     bool `json:"hasMain"`
	HasForms    bool `json:"hasForms"`
	FormCount   int  `json:"formCount"`
	ButtonCount int  `json:"buttonCount"`
	LinkCount   int  `json:"linkCount"`
	InputCount  int  `json:"inputCount"`
}

// PageAnalysis is the structural and selector model of a page.
type PageAnalysis struct {
	URL                 string        `json:"url"`
	Title               string        `json:"title"`
	Forms               []Form        `json:"forms"`
	Buttons             []PageElement `json:"buttons"`
	Links               []PageElement `json:"links"`
	Inputs              []PageElement `json:"inputs"`
	Navigation          []PageElement `json:"navigation"`
	InteractiveElements []PageElement `json:"interactive_elements"`
	PageStructure       string        `json:"page_structure"`
	MetaDescription     string        `json:"meta_description,omitempty"`
	Fallback            bool          `json:"fallback,omitempty"`
}

// Selectors returns every distinct selector in the analysis, in document order of
// forms, buttons, inputs, links and navigation.
func (a *PageAnalysis) Selectors() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(els []PageElement) {
		for _, el := range els {
			if el.Selector == "" || seen[el.Selector] {
				continue
			}
			seen[el.Selector] = true
			out = append(out, el.Selector)
		}
	}
	for _, f := range a.Forms {
		add(f.Inputs)
		add(f.Buttons)
	}
	add(a.Buttons)
	add(a.Inputs)
	add(a.Links)
	add(a.Navigation)
	return out
}
