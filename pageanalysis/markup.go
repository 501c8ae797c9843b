package pageanalysis

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CondenseMarkup strips non-content nodes from an HTML document and returns at
// most limit runes of the remaining body markup.
func CondenseMarkup(html string, limit int) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return truncate(html, limit)
	}
	doc.Find("script, style, noscript, svg, template, link, meta, iframe").Remove()

	body := doc.Find("body")
	var out string
	if body.Length() > 0 {
		out, err = body.Html()
	} else {
		out, err = doc.Html()
	}
	if err != nil {
		return truncate(html, limit)
	}
	out = strings.Join(strings.Fields(out), " ")
	return truncate(out, limit)
}
