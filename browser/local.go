package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/hairizuan-noorazman/testpilot/internal/idgen"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// LocalConfig configures browsers launched on this host.
type LocalConfig struct {
	ExecPath  string
	NoSandbox bool
}

type localSession struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// LocalProvider launches Chrome on the local host. Sessions have no recording
// and no provider-side screenshots.
type LocalProvider struct {
	cfg    LocalConfig
	logger logger.Logger

	mu       sync.Mutex
	sessions map[string]*localSession
}

func NewLocalProvider(cfg LocalConfig, log logger.Logger) *LocalProvider {
	return &LocalProvider{
		cfg:      cfg,
		logger:   log,
		sessions: make(map[string]*localSession),
	}
}

func (p *LocalProvider) allocatorOptions(headless bool, vp testrun.Viewport) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", headless),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(vp.Width, vp.Height),
	)
	if p.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.cfg.ExecPath))
	}
	if p.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

func (p *LocalProvider) CreateSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	if opts.Browser != "" && opts.Browser != testrun.BrowserChromium {
		p.logger.Warn(ctx, "local provider only runs chromium", map[string]interface{}{
			"requested_browser": string(opts.Browser),
		})
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), p.allocatorOptions(opts.Headless, opts.Viewport)...)

	id := idgen.NewSessionID()
	p.mu.Lock()
	p.sessions[id] = &localSession{allocCtx: allocCtx, cancel: cancel}
	p.mu.Unlock()

	p.logger.Info(ctx, "local browser session created", map[string]interface{}{
		"browser_session_id": id,
	})
	return &Session{ID: id}, nil
}

func (p *LocalProvider) Connect(ctx context.Context, sessionID string, viewport testrun.Viewport) (Page, error) {
	p.mu.Lock()
	s, ok := p.sessions[sessionID]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	tabCtx, cancelTab := chromedp.NewContext(s.allocCtx)
	page := NewChromePage(tabCtx, cancelTab)
	if err := page.run(ctx, emulation.SetDeviceMetricsOverride(int64(viewport.Width), int64(viewport.Height), 1, false)); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to open page on session %s: %w", sessionID, err)
	}
	return page, nil
}

func (p *LocalProvider) Screenshots(ctx context.Context, sessionID string) ([]string, error) {
	return []string{}, nil
}

func (p *LocalProvider) Recording(ctx context.Context, sessionID string) (string, error) {
	return "", nil
}

func (p *LocalProvider) CloseSession(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	s, ok := p.sessions[sessionID]
	delete(p.sessions, sessionID)
	p.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.cancel()
	return nil
}

// Launch starts a throwaway local browser with a single page. Closing the page
// shuts the browser down.
func (p *LocalProvider) Launch(ctx context.Context, headless bool, viewport testrun.Viewport) (Page, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), p.allocatorOptions(headless, viewport)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	page := NewChromePage(tabCtx, func() {
		cancelTab()
		cancelAlloc()
	})
	// First run starts the browser.
	if err := page.run(ctx); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return page, nil
}

// Shutdown closes every open session.
func (p *LocalProvider) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, s := range p.sessions {
		s.cancel()
		delete(p.sessions, id)
	}
}
