package testrun

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/testpilot/internal/idgen"
)

var (
	ErrInvalidInstruction = errors.New("instruction is required")
	ErrInvalidURL         = errors.New("url must be an absolute http(s) url")
	ErrInvalidBrowser     = errors.New("invalid browser")
	ErrInvalidViewport    = errors.New("viewport dimensions must be positive")
	ErrInvalidTimeout     = errors.New("timeout must be positive")
)

// Request defaults.
const (
	DefaultTimeoutMS      = 30000
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// BrowserKind names the browser engine a session runs.
type BrowserKind string

const (
	BrowserChromium BrowserKind = "chromium"
	BrowserFirefox  BrowserKind = "firefox"
	BrowserWebKit   BrowserKind = "webkit"
)

func (b BrowserKind) IsValid() bool {
	switch b {
	case BrowserChromium, BrowserFirefox, BrowserWebKit:
		return true
	}
	return false
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Request is a natural-language test request. Call Normalize before handing it to
// the workflow; the normalized value is not modified afterwards.
type Request struct {
	Instruction string      `json:"instruction"`
	URL         string      `json:"url"`
	Browser     BrowserKind `json:"browser,omitempty"`
	Viewport    *Viewport   `json:"viewport,omitempty"`
	// Timeout is in milliseconds.
	Timeout   int    `json:"timeout,omitempty"`
	Headless  *bool  `json:"headless,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Normalize returns a copy of r with defaults filled in and a session id assigned
// when none was given.
func (r Request) Normalize() Request {
	r.Instruction = strings.TrimSpace(r.Instruction)
	r.URL = strings.TrimSpace(r.URL)
	if r.Browser == "" {
		r.Browser = BrowserChromium
	}
	if r.Viewport == nil {
		r.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	} else {
		vp := *r.Viewport
		r.Viewport = &vp
	}
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeoutMS
	}
	if r.Headless == nil {
		headless := true
		r.Headless = &headless
	} else {
		headless := *r.Headless
		r.Headless = &headless
	}
	if r.SessionID == "" {
		r.SessionID = idgen.NewSessionID()
	}
	return r
}

func (r Request) Validate() error {
	if r.Instruction == "" {
		return ErrInvalidInstruction
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	if r.Browser != "" && !r.Browser.IsValid() {
		return ErrInvalidBrowser
	}
	if r.Viewport != nil && (r.Viewport.Width <= 0 || r.Viewport.Height <= 0) {
		return ErrInvalidViewport
	}
	if r.Timeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// IsHeadless reports the headless flag, defaulting to true.
func (r Request) IsHeadless() bool {
	return r.Headless == nil || *r.Headless
}

// TimeoutDuration converts Timeout to a duration, using the default when unset.
func (r Request) TimeoutDuration() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeoutMS * time.Millisecond
	}
	return time.Duration(r.Timeout) * time.Millisecond
}

// ViewportOrDefault returns the request viewport, or the default one.
func (r Request) ViewportOrDefault() Viewport {
	if r.Viewport == nil {
		return Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	return *r.Viewport
}
