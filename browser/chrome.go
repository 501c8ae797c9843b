package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	pollInterval    = 100 * time.Millisecond
	networkIdleTime = 500 * time.Millisecond
	maxConsoleLogs  = 200
)

var readyStateChecks = map[LoadState]string{
	LoadStateCommit:           `document.location.href !== 'about:blank'`,
	LoadStateDOMContentLoaded: `document.readyState !== 'loading'`,
	LoadStateLoad:             `document.readyState === 'complete'`,
}

const networkIdleCheck = `(() => {
  const n = performance.getEntriesByType('resource').length;
  const now = performance.now();
  const s = window.__testpilotIdle;
  if (!s || s.n !== n) { window.__testpilotIdle = { n: n, t: now }; return false; }
  return document.readyState === 'complete' && now - s.t >= %d;
})()`

// ChromePage drives a chromedp tab.
type ChromePage struct {
	tab     context.Context
	release func()

	mu      sync.Mutex
	console []string
	closed  bool
}

// NewChromePage wraps a chromedp tab context. release is called once by Close
// and must tear down the tab and its allocator.
func NewChromePage(tab context.Context, release func()) *ChromePage {
	p := &ChromePage{tab: tab, release: release}
	chromedp.ListenTarget(tab, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventConsoleAPICalled); ok {
			p.recordConsole(e)
		}
	})
	return p
}

func (p *ChromePage) recordConsole(e *runtime.EventConsoleAPICalled) {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		if arg.Description != "" {
			parts = append(parts, arg.Description)
			continue
		}
		parts = append(parts, strings.Trim(string(arg.Value), `"`))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.console) >= maxConsoleLogs {
		return
	}
	p.console = append(p.console, fmt.Sprintf("[%s] %s", e.Type, strings.Join(parts, " ")))
}

// run executes actions on the tab, bounded by the caller's context.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := p.scoped(ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// scoped derives a context from the tab that carries ctx's deadline and
// cancellation. Cancelling it does not close the tab.
func (p *ChromePage) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if dl, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(p.tab, dl)
	} else {
		runCtx, cancel = context.WithCancel(p.tab)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *ChromePage) Goto(ctx context.Context, url string, opts NavigateOptions) error {
	navCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	err := p.run(navCtx, chromedp.Navigate(url))
	if err == nil {
		return nil
	}
	if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return err
	}

	// The load event did not arrive in time; accept the page if it already
	// reached the requested milestone.
	check, ok := readyStateChecks[opts.WaitUntil]
	if !ok || opts.WaitUntil == LoadStateLoad {
		return err
	}
	var reached bool
	if evalErr := p.run(ctx, chromedp.Evaluate(check, &reached)); evalErr == nil && reached {
		return nil
	}
	return err
}

func (p *ChromePage) Click(ctx context.Context, selector string) error {
	loc := Resolve(selector)
	return p.run(ctx, chromedp.Click(loc.Query, loc.by(), chromedp.NodeVisible))
}

func (p *ChromePage) Fill(ctx context.Context, selector, value string) error {
	loc := Resolve(selector)
	return p.run(ctx,
		chromedp.WaitVisible(loc.Query, loc.by()),
		chromedp.Clear(loc.Query, loc.by()),
		chromedp.SendKeys(loc.Query, value, loc.by()),
	)
}

func (p *ChromePage) WaitForSelector(ctx context.Context, selector string, state ElementState) error {
	loc := Resolve(selector)
	switch state {
	case StateAttached:
		return p.run(ctx, chromedp.WaitReady(loc.Query, loc.by()))
	case StateHidden:
		return p.run(ctx, chromedp.WaitNotVisible(loc.Query, loc.by()))
	case StateDetached:
		return p.run(ctx, chromedp.WaitNotPresent(loc.Query, loc.by()))
	default:
		return p.run(ctx, chromedp.WaitVisible(loc.Query, loc.by()))
	}
}

func (p *ChromePage) WaitForLoadState(ctx context.Context, state LoadState) error {
	if state == "" {
		state = LoadStateLoad
	}
	if state == LoadStateNetworkIdle {
		return p.poll(ctx, fmt.Sprintf(networkIdleCheck, networkIdleTime.Milliseconds()))
	}
	check, ok := readyStateChecks[state]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedState, state)
	}
	return p.poll(ctx, check)
}

// poll evaluates expression until it is true or ctx ends.
func (p *ChromePage) poll(ctx context.Context, expression string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var ok bool
		// Evaluation can fail transiently while a navigation swaps documents.
		if err := p.run(ctx, chromedp.Evaluate(expression, &ok)); err == nil && ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *ChromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *ChromePage) SelectOption(ctx context.Context, selector, value string) error {
	loc := Resolve(selector)
	return p.run(ctx,
		chromedp.WaitVisible(loc.Query, loc.by()),
		chromedp.SetValue(loc.Query, value, loc.by()),
	)
}

func (p *ChromePage) Hover(ctx context.Context, selector string) error {
	loc := Resolve(selector)
	var nodes []*cdp.Node
	return p.run(ctx,
		chromedp.ScrollIntoView(loc.Query, loc.by()),
		chromedp.Nodes(loc.Query, &nodes, loc.by(), chromedp.NodeVisible),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
			}
			box, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
			if err != nil {
				return err
			}
			x, y := center(box.Content)
			return chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx)
		}),
	)
}

func center(q dom.Quad) (float64, float64) {
	if len(q) < 8 {
		return 0, 0
	}
	return (q[0] + q[2] + q[4] + q[6]) / 4, (q[1] + q[3] + q[5] + q[7]) / 4
}

func (p *ChromePage) ScrollTo(ctx context.Context, target string) error {
	expr, err := scrollExpression(target)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.Evaluate(expr, nil))
}

func scrollExpression(target string) (string, error) {
	t := strings.TrimSpace(target)
	if t == "" || t == "bottom" || t == "document.body.scrollHeight" {
		return "window.scrollTo(0, document.body.scrollHeight)", nil
	}
	if t == "top" {
		return "window.scrollTo(0, 0)", nil
	}
	n, err := strconv.Atoi(t)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidScrollTarget, target)
	}
	return fmt.Sprintf("window.scrollTo(0, %d)", n), nil
}

func (p *ChromePage) Evaluate(ctx context.Context, expression string, out interface{}) error {
	return p.run(ctx, chromedp.Evaluate(expression, out))
}

func (p *ChromePage) Text(ctx context.Context, selector string) (string, error) {
	loc := Resolve(selector)
	var text string
	err := p.run(ctx, chromedp.Text(loc.Query, &text, loc.by(), chromedp.NodeVisible))
	return text, err
}

func (p *ChromePage) InputValue(ctx context.Context, selector string) (string, error) {
	loc := Resolve(selector)
	var value string
	err := p.run(ctx, chromedp.Value(loc.Query, &value, loc.by()))
	return value, err
}

func (p *ChromePage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	loc := Resolve(selector)
	var (
		value string
		ok    bool
	)
	err := p.run(ctx, chromedp.AttributeValue(loc.Query, name, &value, &ok, loc.by()))
	return value, ok, err
}

func (p *ChromePage) Count(ctx context.Context, selector string) (int, error) {
	loc := Resolve(selector)
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(loc.Query, &nodes, loc.by(), chromedp.AtLeast(0))); err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (p *ChromePage) URL(ctx context.Context) (string, error) {
	var u string
	err := p.run(ctx, chromedp.Location(&u))
	return u, err
}

func (p *ChromePage) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *ChromePage) Content(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *ChromePage) ConsoleLogs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.console))
	copy(out, p.console)
	return out
}

// Close releases the tab. It is safe to call more than once.
func (p *ChromePage) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if p.release != nil {
		p.release()
	}
	return nil
}
