package browser

import (
	"regexp"
	"strings"

	"github.com/chromedp/chromedp"
)

var hasTextPattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*|\*)?:has-text\((?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')\)$`)

// Locator is a selector resolved to a chromedp query.
type Locator struct {
	Query string
	XPath bool
}

func (l Locator) by() chromedp.QueryOption {
	if l.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Resolve translates a selector into a chromedp query. CSS selectors pass
// through; text= and :has-text() locators become XPath expressions.
func Resolve(selector string) Locator {
	s := strings.TrimSpace(selector)

	if strings.HasPrefix(s, "text=") {
		text := unquote(strings.TrimPrefix(s, "text="))
		lit := xpathLiteral(text)
		return Locator{
			Query: "//*[contains(normalize-space(.), " + lit + ")][not(*[contains(normalize-space(.), " + lit + ")])]",
			XPath: true,
		}
	}

	if strings.HasPrefix(s, "xpath=") {
		return Locator{Query: strings.TrimPrefix(s, "xpath="), XPath: true}
	}
	if strings.HasPrefix(s, "//") {
		return Locator{Query: s, XPath: true}
	}

	if m := hasTextPattern.FindStringSubmatch(s); m != nil {
		tag := m[1]
		if tag == "" {
			tag = "*"
		}
		text := m[2]
		if text == "" {
			text = m[3]
		}
		return Locator{
			Query: "//" + tag + "[contains(normalize-space(.), " + xpathLiteral(unescape(text)) + ")]",
			XPath: true,
		}
	}

	if strings.HasPrefix(s, "css=") {
		s = strings.TrimPrefix(s, "css=")
	}
	return Locator{Query: s}
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return unescape(s[1 : len(s)-1])
		}
	}
	return s
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// xpathLiteral quotes s as an XPath string literal.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
