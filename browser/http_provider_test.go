package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

func newTestProvider(t *testing.T, handler http.Handler) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPProvider(HTTPProviderConfig{
		BaseURL:        srv.URL,
		APIKey:         "key-123",
		ProjectID:      "proj",
		MaxElapsedTime: 10 * time.Second,
	}, logger.NewTestLogger())
}

func TestHTTPProvider_CreateSession(t *testing.T) {
	var got createSessionRequest
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sessions", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"sessionId":"bb-1"}`))
	}))

	s, err := p.CreateSession(context.Background(), SessionOptions{
		Browser:  testrun.BrowserChromium,
		Headless: true,
		Viewport: testrun.Viewport{Width: 1280, Height: 720},
	})
	require.NoError(t, err)
	assert.Equal(t, "bb-1", s.ID)
	assert.Equal(t, "proj", got.ProjectID)
	assert.Equal(t, "chromium", got.Browser)
	assert.True(t, got.EnableRecording)
	assert.True(t, got.CaptureScreenshots)
	assert.Equal(t, 1280, got.Viewport.Width)
}

func TestHTTPProvider_CreateSessionRetriesServerErrors(t *testing.T) {
	var calls int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"bb-2","connectUrl":"wss://x"}`))
	}))

	s, err := p.CreateSession(context.Background(), SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "bb-2", s.ID)
	assert.Equal(t, "wss://x", s.ConnectURL)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPProvider_CreateSessionClientErrorIsPermanent(t *testing.T) {
	var calls int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := p.CreateSession(context.Background(), SessionOptions{})
	assert.ErrorIs(t, err, ErrProviderRequest)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPProvider_Artifacts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/s1/screenshots", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"screenshots":["a.png","b.png"]}`))
	})
	mux.HandleFunc("/sessions/s1/recording", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recordingUrl":"https://rec/s1"}`))
	})
	p := newTestProvider(t, mux)
	ctx := context.Background()

	shots, err := p.Screenshots(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, shots)

	rec, err := p.Recording(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "https://rec/s1", rec)
}

func TestHTTPProvider_ArtifactFailuresDegrade(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	ctx := context.Background()

	shots, err := p.Screenshots(ctx, "s1")
	assert.NoError(t, err)
	assert.Empty(t, shots)

	rec, err := p.Recording(ctx, "s1")
	assert.NoError(t, err)
	assert.Empty(t, rec)
}

func TestHTTPProvider_CloseSession(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path == "/sessions/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := context.Background()

	assert.NoError(t, p.CloseSession(ctx, "s1"))
	assert.ErrorIs(t, p.CloseSession(ctx, "missing"), ErrSessionNotFound)
}

func TestHTTPProvider_ConnectURL(t *testing.T) {
	p := NewHTTPProvider(HTTPProviderConfig{APIKey: "k&y"}, logger.NewTestLogger())
	assert.Equal(t, "wss://connect.browserbase.com?apiKey=k%26y&sessionId=abc", p.ConnectURL("abc"))

	p = NewHTTPProvider(HTTPProviderConfig{ConnectURL: "ws://host:9222/devtools/browser/{session_id}"}, logger.NewTestLogger())
	assert.Equal(t, "ws://host:9222/devtools/browser/abc", p.ConnectURL("abc"))
}
