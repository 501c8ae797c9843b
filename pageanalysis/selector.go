package pageanalysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	selectorTextLimit = 30
	elementTextLimit  = 100
)

var cssIdent = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)

var interactiveTags = map[string]bool{
	"button":   true,
	"a":        true,
	"input":    true,
	"textarea": true,
	"select":   true,
}

// ComputeSelector returns the locator for el. Priority: test id, id, class list,
// text (buttons and links only), tag name.
func ComputeSelector(el PageElement) string {
	if el.TestID != "" {
		return `[data-testid="` + escapeAttr(el.TestID) + `"]`
	}
	if el.ID != "" {
		if cssIdent.MatchString(el.ID) {
			return "#" + el.ID
		}
		return `[id="` + escapeAttr(el.ID) + `"]`
	}
	if classes := validClasses(el.Classes); len(classes) > 0 {
		return "." + strings.Join(classes, ".")
	}
	tag := strings.ToLower(el.Tag)
	if text := collapseSpace(el.Text); text != "" && (tag == "button" || tag == "a") {
		return tag + `:has-text("` + escapeAttr(truncate(text, selectorTextLimit)) + `")`
	}
	if tag == "" {
		return "*"
	}
	return tag
}

func validClasses(classes []string) []string {
	var out []string
	for _, c := range classes {
		if cssIdent.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

// attrEscaper quotes a value for a double-quoted CSS attribute selector. Line
// breaks become CSS hex escapes so a selector always fits on one line.
var attrEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `, "\r", `\d `, "\f", `\c `)

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
