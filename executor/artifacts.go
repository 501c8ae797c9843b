package executor

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/testpilot/browser"
)

// screenshot captures the page and uploads it under
// screenshots/<session>/<name>. It returns the storage path, or "" when no
// storage is configured.
func (e *Executor) screenshot(ctx context.Context, page browser.Page, sessionID, name string) (string, error) {
	data, err := page.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if e.blobs == nil {
		return "", nil
	}

	key := screenshotKey(sessionID, name)
	if err := e.blobs.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store screenshot: %w", err)
	}
	return key, nil
}

func screenshotKey(sessionID, name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = fmt.Sprintf("screenshot_%d.png", time.Now().UnixNano())
	}
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}
	if sessionID == "" {
		sessionID = "unknown"
	}
	return path.Join("screenshots", sessionID, name)
}
