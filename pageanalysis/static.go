package pageanalysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hairizuan-noorazman/testpilot/logger"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	maxDocumentBytes = 5 << 20
)

// StaticAnalyzer fetches the page over HTTP and extracts elements from the
// served markup. Script-rendered content is not seen.
type StaticAnalyzer struct {
	client *http.Client
	logger logger.Logger
}

func NewStaticAnalyzer(client *http.Client, log logger.Logger) *StaticAnalyzer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &StaticAnalyzer{
		client: client,
		logger: log.WithField("component", "static_analyzer"),
	}
}

func (a *StaticAnalyzer) Analyze(ctx context.Context, pageURL string, headless bool) (*PageAnalysis, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	analysis, err := AnalyzeHTML(finalURL, io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, err
	}
	a.logger.Info(ctx, "static page analysis complete", map[string]interface{}{
		"url":     finalURL,
		"buttons": len(analysis.Buttons),
		"inputs":  len(analysis.Inputs),
	})
	return analysis, nil
}

// AnalyzeHTML extracts a PageAnalysis from an HTML document. pageURL is used
// to resolve relative links.
func AnalyzeHTML(pageURL string, r io.Reader) (*PageAnalysis, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}
	base, _ := url.Parse(pageURL)

	toRaw := func(sel *goquery.Selection) []rawElement {
		out := make([]rawElement, 0, sel.Length())
		sel.Each(func(_ int, s *goquery.Selection) {
			out = append(out, rawFromSelection(s, base))
		})
		return out
	}

	var forms []rawForm
	doc.Find("form").Each(func(_ int, f *goquery.Selection) {
		forms = append(forms, rawForm{
			ID:      attr(f, "id"),
			Name:    attr(f, "name"),
			Action:  resolve(base, attr(f, "action")),
			Method:  attr(f, "method"),
			Inputs:  toRaw(f.Find("input, textarea, select")),
			Buttons: toRaw(f.Find(`button, input[type="submit"]`)),
		})
	})

	buttons := doc.Find(`button, [role="button"], input[type="submit"], input[type="button"]`)
	inputs := doc.Find(`input:not([type="submit"]):not([type="button"]), textarea, select`)

	raw := rawPage{
		URL:             pageURL,
		Title:           doc.Find("title").First().Text(),
		MetaDescription: attr(doc.Find(`meta[name="description"]`).First(), "content"),
		Forms:           forms,
		Buttons:         toRaw(buttons.Slice(0, min(buttons.Length(), MaxButtons))),
		Links:           toRaw(firstN(doc.Find("a[href]"), MaxLinks)),
		Inputs:          toRaw(inputs.Slice(0, min(inputs.Length(), MaxInputs))),
		Navigation:      toRaw(firstN(doc.Find(`nav a, header a, [role="navigation"] a`), MaxNavigation)),
		Structure: Structure{
			HasHeader:   doc.Find("header").Length() > 0,
			HasNav:      doc.Find("nav").Length() > 0,
			HasFooter:   doc.Find("footer").Length() > 0,
			HasMain:     doc.Find("main").Length() > 0,
			HasForms:    len(forms) > 0,
			FormCount:   len(forms),
			ButtonCount: buttons.Length(),
			LinkCount:   doc.Find("a").Length(),
			InputCount:  inputs.Length(),
		},
	}
	return build(raw), nil
}

func firstN(sel *goquery.Selection, n int) *goquery.Selection {
	return sel.Slice(0, min(sel.Length(), n))
}

func rawFromSelection(s *goquery.Selection, base *url.URL) rawElement {
	tag := goquery.NodeName(s)
	typ := attr(s, "type")
	if typ == "" {
		typ = defaultType(tag)
	}
	style := strings.ReplaceAll(strings.ToLower(attr(s, "style")), " ", "")
	_, hidden := s.Attr("hidden")
	visible := !hidden && typ != "hidden" && !strings.Contains(style, "display:none") && !strings.Contains(style, "visibility:hidden")

	text := s.Text()
	if tag == "input" && (typ == "submit" || typ == "button") && text == "" {
		text = attr(s, "value")
	}

	href := ""
	if tag == "a" {
		href = resolve(base, attr(s, "href"))
	}

	return rawElement{
		Tag:         tag,
		Text:        text,
		ID:          attr(s, "id"),
		ClassName:   attr(s, "class"),
		TestID:      attr(s, "data-testid"),
		Name:        attr(s, "name"),
		Type:        typ,
		Placeholder: attr(s, "placeholder"),
		Href:        href,
		Role:        attr(s, "role"),
		AriaLabel:   attr(s, "aria-label"),
		Visible:     visible,
	}
}

// defaultType mirrors the DOM's default type property per element.
func defaultType(tag string) string {
	switch tag {
	case "input":
		return "text"
	case "button":
		return "submit"
	case "select":
		return "select-one"
	case "textarea":
		return "textarea"
	}
	return ""
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
