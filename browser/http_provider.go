package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

const (
	DefaultBaseURL        = "https://api.browserbase.com/v1"
	DefaultConnectURL     = "wss://connect.browserbase.com?apiKey={api_key}&sessionId={session_id}"
	defaultRequestTimeout = 30 * time.Second
)

// HTTPProviderConfig configures HTTPProvider.
type HTTPProviderConfig struct {
	BaseURL   string
	APIKey    string
	ProjectID string
	// ConnectURL is a template for the CDP websocket url. {session_id} and
	// {api_key} are substituted.
	ConnectURL     string
	MaxElapsedTime time.Duration
	HTTPClient     *http.Client
}

// HTTPProvider talks to a Browserbase-compatible session API.
type HTTPProvider struct {
	cfg    HTTPProviderConfig
	client *http.Client
	logger logger.Logger
}

// NewHTTPProvider creates a session provider for the given API.
func NewHTTPProvider(cfg HTTPProviderConfig, log logger.Logger) *HTTPProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ConnectURL == "" {
		cfg.ConnectURL = DefaultConnectURL
	}
	if cfg.MaxElapsedTime == 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &HTTPProvider{cfg: cfg, client: client, logger: log}
}

type createSessionRequest struct {
	ProjectID          string           `json:"projectId"`
	Browser            string           `json:"browser"`
	Headless           bool             `json:"headless"`
	Viewport           testrun.Viewport `json:"viewport"`
	EnableRecording    bool             `json:"enableRecording"`
	CaptureScreenshots bool             `json:"captureScreenshots"`
}

type createSessionResponse struct {
	SessionID  string `json:"sessionId"`
	ID         string `json:"id"`
	ConnectURL string `json:"connectUrl"`
}

// CreateSession provisions a session, retrying transient failures with
// exponential backoff.
func (p *HTTPProvider) CreateSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	body, err := json.Marshal(createSessionRequest{
		ProjectID:          p.cfg.ProjectID,
		Browser:            string(opts.Browser),
		Headless:           opts.Headless,
		Viewport:           opts.Viewport,
		EnableRecording:    true,
		CaptureScreenshots: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = p.cfg.MaxElapsedTime
	b.MaxInterval = 5 * time.Second

	var resp createSessionResponse
	operation := func() error {
		status, respBody, err := p.do(ctx, http.MethodPost, "/sessions", body)
		if err != nil {
			p.logger.Warn(ctx, "session create request failed, retrying", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
		if status >= 500 || status == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d", ErrProviderRequest, status)
		}
		if status >= 300 {
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrProviderRequest, status, truncateBody(respBody)))
		}
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode session response: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		p.logger.Error(ctx, "failed to create browser session", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	id := resp.SessionID
	if id == "" {
		id = resp.ID
	}
	if id == "" {
		return nil, fmt.Errorf("%w: response carried no session id", ErrProviderRequest)
	}

	p.logger.Info(ctx, "browser session created", map[string]interface{}{
		"browser_session_id": id,
	})
	return &Session{ID: id, ConnectURL: resp.ConnectURL}, nil
}

// ConnectURL returns the CDP websocket url for a session.
func (p *HTTPProvider) ConnectURL(sessionID string) string {
	r := strings.NewReplacer(
		"{session_id}", url.QueryEscape(sessionID),
		"{api_key}", url.QueryEscape(p.cfg.APIKey),
	)
	return r.Replace(p.cfg.ConnectURL)
}

// Connect attaches chromedp to the remote session and opens a fresh tab.
func (p *HTTPProvider) Connect(ctx context.Context, sessionID string, viewport testrun.Viewport) (Page, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), p.ConnectURL(sessionID))
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	release := func() {
		cancelTab()
		cancelAlloc()
	}

	page := NewChromePage(tabCtx, release)
	if err := page.run(ctx, emulation.SetDeviceMetricsOverride(int64(viewport.Width), int64(viewport.Height), 1, false)); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to connect to session %s: %w", sessionID, err)
	}
	return page, nil
}

type screenshotsResponse struct {
	Screenshots []string `json:"screenshots"`
}

// Screenshots returns the screenshots captured by the provider. Failures are
// logged and yield an empty list.
func (p *HTTPProvider) Screenshots(ctx context.Context, sessionID string) ([]string, error) {
	var out screenshotsResponse
	if err := p.getJSON(ctx, "/sessions/"+url.PathEscape(sessionID)+"/screenshots", &out); err != nil {
		p.logger.Warn(ctx, "failed to get session screenshots", map[string]interface{}{
			"browser_session_id": sessionID,
			"error":              err.Error(),
		})
		return []string{}, nil
	}
	if out.Screenshots == nil {
		return []string{}, nil
	}
	return out.Screenshots, nil
}

type recordingResponse struct {
	RecordingURL string `json:"recordingUrl"`
}

// Recording returns the session recording url, or "" when unavailable.
func (p *HTTPProvider) Recording(ctx context.Context, sessionID string) (string, error) {
	var out recordingResponse
	if err := p.getJSON(ctx, "/sessions/"+url.PathEscape(sessionID)+"/recording", &out); err != nil {
		p.logger.Warn(ctx, "failed to get session recording", map[string]interface{}{
			"browser_session_id": sessionID,
			"error":              err.Error(),
		})
		return "", nil
	}
	return out.RecordingURL, nil
}

func (p *HTTPProvider) CloseSession(ctx context.Context, sessionID string) error {
	status, body, err := p.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if status >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrProviderRequest, status, truncateBody(body))
	}
	p.logger.Info(ctx, "browser session closed", map[string]interface{}{
		"browser_session_id": sessionID,
	})
	return nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, out interface{}) error {
	status, body, err := p.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: status %d", ErrProviderRequest, status)
	}
	return json.Unmarshal(body, out)
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit])
	}
	return string(b)
}
