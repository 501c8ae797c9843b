package browser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hairizuan-noorazman/testpilot/browser"
	"github.com/hairizuan-noorazman/testpilot/browser/browsertest"
	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSession(t *testing.T) {
	ctx := context.Background()
	opts := browser.SessionOptions{
		Browser:  testrun.BrowserChromium,
		Headless: true,
		Viewport: testrun.Viewport{Width: 1280, Height: 720},
	}

	t.Run("closing the page closes the session", func(t *testing.T) {
		fake := browsertest.NewProvider(browsertest.NewPage())

		page, err := browser.OpenSession(ctx, fake, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"fake-session-1"}, fake.Connected)
		assert.Empty(t, fake.ClosedSessions)

		require.NoError(t, page.Close())
		assert.True(t, fake.Page.Closed)
		assert.Equal(t, []string{"fake-session-1"}, fake.ClosedSessions)
	})

	t.Run("connect failure releases the session", func(t *testing.T) {
		fake := browsertest.NewProvider(browsertest.NewPage())
		fake.ConnectErr = errors.New("cdp refused")

		_, err := browser.OpenSession(ctx, fake, opts)
		assert.ErrorIs(t, err, fake.ConnectErr)
		assert.Equal(t, []string{"fake-session-1"}, fake.ClosedSessions)
	})

	t.Run("create failure", func(t *testing.T) {
		fake := browsertest.NewProvider(browsertest.NewPage())
		fake.CreateErr = browser.ErrProviderRequest

		_, err := browser.OpenSession(ctx, fake, opts)
		assert.ErrorIs(t, err, browser.ErrProviderRequest)
		assert.Empty(t, fake.Connected)
	})
}
