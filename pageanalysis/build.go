package pageanalysis

import (
	"encoding/json"
	"strings"
)

// rawElement is an element as reported by an extraction backend, before
// selector computation.
type rawElement struct {
	Tag         string `json:"tag"`
	Text        string `json:"text"`
	ID          string `json:"id"`
	ClassName   string `json:"className"`
	TestID      string `json:"testId"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder"`
	Href        string `json:"href"`
	Role        string `json:"role"`
	AriaLabel   string `json:"ariaLabel"`
	Visible     bool   `json:"visible"`
}

type rawForm struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Action  string       `json:"action"`
	Method  string       `json:"method"`
	Inputs  []rawElement `json:"inputs"`
	Buttons []rawElement `json:"buttons"`
}

type rawPage struct {
	URL             string       `json:"url"`
	Title           string       `json:"title"`
	MetaDescription string       `json:"metaDescription"`
	Forms           []rawForm    `json:"forms"`
	Buttons         []rawElement `json:"buttons"`
	Links           []rawElement `json:"links"`
	Inputs          []rawElement `json:"inputs"`
	Navigation      []rawElement `json:"navigation"`
	Structure       Structure    `json:"structure"`
}

func newElement(raw rawElement) PageElement {
	tag := strings.ToLower(raw.Tag)
	el := PageElement{
		Tag:           tag,
		Text:          truncate(collapseSpace(raw.Text), elementTextLimit),
		ID:            raw.ID,
		Classes:       strings.Fields(raw.ClassName),
		TestID:        raw.TestID,
		Name:          raw.Name,
		Type:          raw.Type,
		Placeholder:   raw.Placeholder,
		Href:          raw.Href,
		Role:          raw.Role,
		AriaLabel:     raw.AriaLabel,
		IsVisible:     raw.Visible,
		IsInteractive: interactiveTags[tag],
	}
	if el.Classes == nil {
		el.Classes = []string{}
	}
	el.Selector = ComputeSelector(el)
	return el
}

func newElements(raws []rawElement, limit int) []PageElement {
	if limit > 0 && len(raws) > limit {
		raws = raws[:limit]
	}
	out := make([]PageElement, 0, len(raws))
	for _, r := range raws {
		out = append(out, newElement(r))
	}
	return out
}

// build turns raw extraction output into a PageAnalysis, applying caps and
// deriving the interactive shortlist.
func build(raw rawPage) *PageAnalysis {
	a := &PageAnalysis{
		URL:             raw.URL,
		Title:           strings.TrimSpace(raw.Title),
		MetaDescription: strings.TrimSpace(raw.MetaDescription),
		Forms:           make([]Form, 0, len(raw.Forms)),
		Buttons:         newElements(raw.Buttons, MaxButtons),
		Links:           newElements(raw.Links, MaxLinks),
		Inputs:          newElements(raw.Inputs, MaxInputs),
		Navigation:      newElements(raw.Navigation, MaxNavigation),
	}
	for _, f := range raw.Forms {
		a.Forms = append(a.Forms, Form{
			ID:      f.ID,
			Name:    f.Name,
			Action:  f.Action,
			Method:  f.Method,
			Inputs:  newElements(f.Inputs, 0),
			Buttons: newElements(f.Buttons, 0),
		})
	}
	a.InteractiveElements = shortlist(a)
	a.PageStructure = marshalStructure(raw.Structure)
	return a
}

func shortlist(a *PageAnalysis) []PageElement {
	var out []PageElement
	out = append(out, head(a.Buttons, 10)...)
	out = append(out, head(a.Inputs, 10)...)
	out = append(out, head(a.Links, 5)...)
	return out
}

func head(els []PageElement, n int) []PageElement {
	if len(els) > n {
		return els[:n]
	}
	return els
}

func marshalStructure(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
