package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// sessionCloseTimeout bounds the release of a session opened by OpenSession.
const sessionCloseTimeout = 10 * time.Second

// sessionPage owns the session behind it and closes it with the page.
type sessionPage struct {
	Page
	provider  SessionProvider
	sessionID string
}

func (p *sessionPage) Close() error {
	pageErr := p.Page.Close()
	ctx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
	defer cancel()
	return errors.Join(pageErr, p.provider.CloseSession(ctx, p.sessionID))
}

// OpenSession creates a session on provider and opens a page on it. Closing
// the page also closes the session.
func OpenSession(ctx context.Context, provider SessionProvider, opts SessionOptions) (Page, error) {
	sess, err := provider.CreateSession(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	page, err := provider.Connect(ctx, sess.ID, opts.Viewport)
	if err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
		defer cancel()
		_ = provider.CloseSession(closeCtx, sess.ID)
		return nil, fmt.Errorf("failed to connect to session %s: %w", sess.ID, err)
	}
	return &sessionPage{Page: page, provider: provider, sessionID: sess.ID}, nil
}
