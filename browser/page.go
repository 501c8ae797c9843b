package browser

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound     = errors.New("browser session not found")
	ErrProviderRequest     = errors.New("session provider request failed")
	ErrUnsupportedState    = errors.New("unsupported load state")
	ErrElementNotFound     = errors.New("element not found")
	ErrInvalidScrollTarget = errors.New("invalid scroll target")
)

// LoadState names a page readiness milestone.
type LoadState string

const (
	LoadStateCommit           LoadState = "commit"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateLoad             LoadState = "load"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

func (s LoadState) IsValid() bool {
	switch s {
	case LoadStateCommit, LoadStateDOMContentLoaded, LoadStateLoad, LoadStateNetworkIdle:
		return true
	}
	return false
}

// ElementState is the condition WaitForSelector waits for.
type ElementState string

const (
	StateVisible  ElementState = "visible"
	StateAttached ElementState = "attached"
	StateHidden   ElementState = "hidden"
	StateDetached ElementState = "detached"
)

// NavigateOptions controls Goto. A navigation that runs out of Timeout still
// succeeds when the page has reached WaitUntil.
type NavigateOptions struct {
	WaitUntil LoadState
	Timeout   time.Duration
}

// Page is the automation primitive set used to drive one browser tab. Timeouts
// are taken from the context passed to each call.
type Page interface {
	Goto(ctx context.Context, url string, opts NavigateOptions) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	WaitForSelector(ctx context.Context, selector string, state ElementState) error
	WaitForLoadState(ctx context.Context, state LoadState) error
	Screenshot(ctx context.Context) ([]byte, error)
	SelectOption(ctx context.Context, selector, value string) error
	Hover(ctx context.Context, selector string) error
	// ScrollTo scrolls vertically to a pixel offset, or to the bottom of the page
	// when target is empty or "bottom".
	ScrollTo(ctx context.Context, target string) error
	Evaluate(ctx context.Context, expression string, out interface{}) error

	Text(ctx context.Context, selector string) (string, error)
	InputValue(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, bool, error)
	Count(ctx context.Context, selector string) (int, error)
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)

	ConsoleLogs() []string
	Close() error
}
