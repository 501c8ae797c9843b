// Package browsertest provides in-memory browser fakes for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hairizuan-noorazman/testpilot/browser"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// Element is the state of a fake DOM element.
type Element struct {
	Text    string
	Value   string
	Attrs   map[string]string
	Count   int
	Hidden  bool
	Options []string
}

// Page is a scriptable browser.Page. Selectors not present in Elements are
// treated as missing.
type Page struct {
	mu sync.Mutex

	Elements  map[string]*Element
	PageURL   string
	PageTitle string
	HTML      string
	Console   []string

	// Errors maps "op" or "op:selector" to the error returned by that call.
	Errors map[string]error
	// NavigationErrors are returned by successive Goto calls before Errors is
	// consulted.
	NavigationErrors []error
	// EvaluateResult is marshalled into the out value of Evaluate.
	EvaluateResult interface{}

	Calls  []string
	Closed bool
}

// NewPage returns an empty fake page.
func NewPage() *Page {
	return &Page{
		Elements: make(map[string]*Element),
		Errors:   make(map[string]error),
	}
}

// With adds an element and returns the page for chaining.
func (p *Page) With(selector string, el Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el.Count == 0 {
		el.Count = 1
	}
	p.Elements[selector] = &el
	return p
}

// Fail makes the named call fail. key is "op" or "op:selector".
func (p *Page) Fail(key string, err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors[key] = err
	return p
}

// CallLog returns a copy of the recorded calls.
func (p *Page) CallLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Calls))
	copy(out, p.Calls)
	return out
}

func (p *Page) record(op, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := op
	if selector != "" {
		call = op + ":" + selector
	}
	p.Calls = append(p.Calls, call)
	if err, ok := p.Errors[call]; ok {
		return err
	}
	if err, ok := p.Errors[op]; ok {
		return err
	}
	return nil
}

func (p *Page) element(selector string) (*Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.Elements[selector]
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return el, nil
}

func (p *Page) Goto(ctx context.Context, url string, opts browser.NavigateOptions) error {
	if err := p.record("goto", url); err != nil {
		return err
	}
	p.mu.Lock()
	if len(p.NavigationErrors) > 0 {
		err := p.NavigationErrors[0]
		p.NavigationErrors = p.NavigationErrors[1:]
		if err != nil {
			p.mu.Unlock()
			return err
		}
	}
	p.PageURL = url
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.record("click", selector); err != nil {
		return err
	}
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	if el.Hidden {
		return fmt.Errorf("element %s is not visible", selector)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if err := p.record("fill", selector); err != nil {
		return err
	}
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	p.mu.Lock()
	el.Value = value
	p.mu.Unlock()
	return nil
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, state browser.ElementState) error {
	if err := p.record("wait", selector); err != nil {
		return err
	}
	el, err := p.element(selector)
	switch state {
	case browser.StateDetached:
		if err == nil {
			return fmt.Errorf("element %s still attached", selector)
		}
		return nil
	case browser.StateHidden:
		if err == nil && !el.Hidden {
			return fmt.Errorf("element %s still visible", selector)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if state != browser.StateAttached && el.Hidden {
		return fmt.Errorf("element %s is not visible", selector)
	}
	return nil
}

func (p *Page) WaitForLoadState(ctx context.Context, state browser.LoadState) error {
	return p.record("load", string(state))
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := p.record("screenshot", ""); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), nil
}

func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	if err := p.record("select", selector); err != nil {
		return err
	}
	el, err := p.element(selector)
	if err != nil {
		return err
	}
	p.mu.Lock()
	el.Value = value
	p.mu.Unlock()
	return nil
}

func (p *Page) Hover(ctx context.Context, selector string) error {
	if err := p.record("hover", selector); err != nil {
		return err
	}
	_, err := p.element(selector)
	return err
}

func (p *Page) ScrollTo(ctx context.Context, target string) error {
	return p.record("scroll", target)
}

func (p *Page) Evaluate(ctx context.Context, expression string, out interface{}) error {
	if err := p.record("evaluate", ""); err != nil {
		return err
	}
	if out == nil || p.EvaluateResult == nil {
		return nil
	}
	b, err := json.Marshal(p.EvaluateResult)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	if err := p.record("text", selector); err != nil {
		return "", err
	}
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (p *Page) InputValue(ctx context.Context, selector string) (string, error) {
	if err := p.record("value", selector); err != nil {
		return "", err
	}
	el, err := p.element(selector)
	if err != nil {
		return "", err
	}
	return el.Value, nil
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	if err := p.record("attribute", selector); err != nil {
		return "", false, err
	}
	el, err := p.element(selector)
	if err != nil {
		return "", false, err
	}
	v, ok := el.Attrs[name]
	return v, ok, nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	if err := p.record("count", selector); err != nil {
		return 0, err
	}
	el, err := p.element(selector)
	if err != nil {
		return 0, nil
	}
	return el.Count, nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	if err := p.record("url", ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PageURL, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	if err := p.record("title", ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PageTitle, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	if err := p.record("content", ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HTML, nil
}

func (p *Page) ConsoleLogs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Console...)
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// Provider is an in-memory browser.SessionProvider handing out a single page.
type Provider struct {
	mu sync.Mutex

	Page           *Page
	CreateErr      error
	ConnectErr     error
	RemoteShots    []string
	ScreenshotsErr error
	RecordingURL   string
	RecordingErr   error
	// RecordingDelay holds Recording back until it elapses or ctx ends.
	RecordingDelay time.Duration
	Created        []string
	ClosedSessions []string
	Connected      []string
	next           int
}

func NewProvider(page *Page) *Provider {
	return &Provider{Page: page}
}

func (p *Provider) CreateSession(ctx context.Context, opts browser.SessionOptions) (*browser.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	p.next++
	id := fmt.Sprintf("fake-session-%d", p.next)
	p.Created = append(p.Created, id)
	return &browser.Session{ID: id}, nil
}

func (p *Provider) Connect(ctx context.Context, sessionID string, viewport testrun.Viewport) (browser.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Connected = append(p.Connected, sessionID)
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	p.Page.mu.Lock()
	p.Page.Closed = false
	p.Page.mu.Unlock()
	return p.Page, nil
}

func (p *Provider) Screenshots(ctx context.Context, sessionID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ScreenshotsErr != nil {
		return nil, p.ScreenshotsErr
	}
	return append([]string{}, p.RemoteShots...), nil
}

func (p *Provider) Recording(ctx context.Context, sessionID string) (string, error) {
	p.mu.Lock()
	delay := p.RecordingDelay
	p.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RecordingErr != nil {
		return "", p.RecordingErr
	}
	return p.RecordingURL, nil
}

func (p *Provider) CloseSession(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ClosedSessions = append(p.ClosedSessions, sessionID)
	return nil
}

// HasCall reports whether the page recorded a call with the given prefix.
func (p *Page) HasCall(prefix string) bool {
	for _, c := range p.CallLog() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
