package browser

import (
	"context"

	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// SessionOptions describe the browser a session should run.
type SessionOptions struct {
	Browser  testrun.BrowserKind
	Headless bool
	Viewport testrun.Viewport
}

// Session is a provisioned browser session.
type Session struct {
	ID         string `json:"id"`
	ConnectURL string `json:"connect_url,omitempty"`
}

// SessionProvider provisions browser sessions and opens pages on them.
type SessionProvider interface {
	CreateSession(ctx context.Context, opts SessionOptions) (*Session, error)
	// Connect opens an isolated page on the session. Closing the page releases
	// the connection but not the session.
	Connect(ctx context.Context, sessionID string, viewport testrun.Viewport) (Page, error)
	Screenshots(ctx context.Context, sessionID string) ([]string, error)
	Recording(ctx context.Context, sessionID string) (string, error)
	CloseSession(ctx context.Context, sessionID string) error
}
