package pageanalysis

// FallbackAnalysis returns a minimal analysis populated with generic selectors.
// It is used when a page cannot be analyzed so planning still gets some context.
func FallbackAnalysis(url string, cause error) *PageAnalysis {
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}

	a := &PageAnalysis{
		URL:   url,
		Title: FallbackTitle,
		Forms: []Form{},
		PageStructure: marshalStructure(map[string]interface{}{
			"error":    errText,
			"fallback": true,
			"note":     "Analysis failed, using generic selectors",
		}),
		Buttons: []PageElement{{
			Tag:           "button",
			Text:          "Generic Submit Button",
			Classes:       []string{},
			Selector:      "button[type='submit']",
			IsVisible:     true,
			IsInteractive: true,
		}},
		Inputs: []PageElement{
			{
				Tag:           "input",
				Type:          "text",
				Classes:       []string{},
				Placeholder:   "Generic text input",
				Selector:      "input[type='text']",
				IsVisible:     true,
				IsInteractive: true,
			},
			{
				Tag:           "input",
				Type:          "password",
				Classes:       []string{},
				Placeholder:   "Generic password input",
				Selector:      "input[type='password']",
				IsVisible:     true,
				IsInteractive: true,
			},
		},
		Links: []PageElement{{
			Tag:           "a",
			Text:          "Generic Link",
			Classes:       []string{},
			Selector:      "a",
			IsVisible:     true,
			IsInteractive: true,
		}},
		Navigation: []PageElement{},
		Fallback:   true,
	}
	a.InteractiveElements = shortlist(a)
	return a
}
