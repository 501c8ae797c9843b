package pageanalysis

import (
	"fmt"
	"strings"
)

const (
	formInputLimit   = 5
	formButtonLimit  = 2
	keyButtonLimit   = 10
	inputFieldLimit  = 10
	navLinkLimit     = 8
	buttonLabelLimit = 50
	navLabelLimit    = 30
	selectorArrow    = " -> "
	structureHeading = "PAGE STRUCTURE:"
)

// FormatForPrompt renders the analysis as bounded text for a model prompt.
// Every element line ends with " -> <selector>", which ParseSelectors reads back.
func FormatForPrompt(a *PageAnalysis) string {
	var parts []string
	add := func(format string, args ...interface{}) {
		parts = append(parts, fmt.Sprintf(format, args...))
	}

	add("Page URL: %s", a.URL)
	add("Page Title: %s", a.Title)
	add("")

	if a.MetaDescription != "" {
		add("Description: %s\n", label(a.MetaDescription))
	}

	if len(a.Forms) > 0 {
		add("FORMS FOUND:")
		for i, form := range a.Forms {
			add("\nForm %d:", i+1)
			if form.ID != "" {
				add("  ID: %s", form.ID)
			}
			add("  Inputs:")
			for _, in := range head(form.Inputs, formInputLimit) {
				desc := "    - " + label(orDefault(in.Type, "text")) + " input"
				if in.Name != "" {
					desc += " (name: " + label(in.Name) + ")"
				}
				if in.Placeholder != "" {
					desc += " [placeholder: " + label(in.Placeholder) + "]"
				}
				parts = append(parts, desc+selectorArrow+in.Selector)
			}
			if len(form.Buttons) > 0 {
				add("  Submit buttons:")
				for _, btn := range head(form.Buttons, formButtonLimit) {
					add("    - %s%s%s", label(orDefault(btn.Text, "Submit")), selectorArrow, btn.Selector)
				}
			}
		}
	}

	if len(a.Buttons) > 0 {
		add("\nKEY BUTTONS:")
		for _, btn := range head(a.Buttons, keyButtonLimit) {
			if btn.Text == "" {
				continue
			}
			add("  - %s%s%s", label(truncate(btn.Text, buttonLabelLimit)), selectorArrow, btn.Selector)
		}
	}

	if len(a.Inputs) > 0 && len(a.Forms) == 0 {
		add("\nINPUT FIELDS:")
		for _, in := range head(a.Inputs, inputFieldLimit) {
			desc := "  - " + label(orDefault(in.Type, "text"))
			if in.Placeholder != "" {
				desc += " [" + label(in.Placeholder) + "]"
			}
			parts = append(parts, desc+selectorArrow+in.Selector)
		}
	}

	if len(a.Navigation) > 0 {
		add("\nNAVIGATION LINKS:")
		for _, nav := range head(a.Navigation, navLinkLimit) {
			if nav.Text == "" {
				continue
			}
			add("  - %s%s%s", label(truncate(nav.Text, navLabelLimit)), selectorArrow, nav.Selector)
		}
	}

	add("\n" + structureHeading)
	parts = append(parts, a.PageStructure)

	return strings.Join(parts, "\n")
}

// ParseSelectors returns the selectors listed in text produced by
// FormatForPrompt, in order of first appearance.
func ParseSelectors(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == structureHeading {
			break
		}
		trimmed := strings.TrimLeft(line, " ")
		if !strings.HasPrefix(trimmed, "- ") {
			continue
		}
		idx := strings.Index(trimmed, selectorArrow)
		if idx < 0 {
			continue
		}
		sel := trimmed[idx+len(selectorArrow):]
		if sel == "" || seen[sel] {
			continue
		}
		seen[sel] = true
		out = append(out, sel)
	}
	return out
}

// label flattens free text so it cannot break the line format.
func label(s string) string {
	s = collapseSpace(s)
	return strings.ReplaceAll(s, "->", "-")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
