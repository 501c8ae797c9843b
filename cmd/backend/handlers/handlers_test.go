package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/results"
	"github.com/hairizuan-noorazman/testpilot/runner"
	"github.com/hairizuan-noorazman/testpilot/storage"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorkflow struct {
	result  *testrun.TestResult
	plan    *testplan.TestPlan
	code    string
	err     error
	lastReq testrun.Request
}

func (f *fakeWorkflow) Run(ctx context.Context, req testrun.Request) (*testrun.TestResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.ID = "result_" + req.SessionID
	return &res, nil
}

func (f *fakeWorkflow) Plan(ctx context.Context, req testrun.Request) (*testplan.TestPlan, error) {
	f.lastReq = req
	return f.plan, f.err
}

func (f *fakeWorkflow) Generate(ctx context.Context, req testrun.Request) (*testplan.TestPlan, string, error) {
	f.lastReq = req
	return f.plan, f.code, f.err
}

type fakeSubmitter struct {
	err error
}

func (f fakeSubmitter) Submit(ctx context.Context, req testrun.Request) (string, error) {
	return req.SessionID, f.err
}

func newTestServer(t *testing.T, wf *fakeWorkflow, sub Submitter, store results.Store) *httptest.Server {
	t.Helper()
	log := logger.NewTestLogger()
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, blobs.Upload(context.Background(), "screenshots/s1/error.png", strings.NewReader("png-bytes")))

	router := NewRouter(Routes{
		Version:   "test",
		Tests:     NewTestRunHandler(wf, sub, store, log),
		Health:    NewHealthHandler(true, false),
		Artifacts: NewArtifactHandler(blobs, log),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("metrics"))
		}),
	}, log)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

var validRequest = map[string]interface{}{
	"instruction": "log in and check the dashboard",
	"url":         "https://example.com/login",
	"session_id":  "s1",
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t, &fakeWorkflow{}, fakeSubmitter{}, results.NewMemoryStore(10, time.Hour))

	var health HealthResponse
	resp := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &health)
	assert.Equal(t, HealthResponse{Status: "healthy", LLMConfigured: true, BrowserConfigured: false}, health)

	var root RootResponse
	decode(t, get(t, srv.URL+"/"), &root)
	assert.Equal(t, "running", root.Status)
	assert.Equal(t, "test", root.Version)

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/metrics").StatusCode)
}

func TestRunSync(t *testing.T) {
	store := results.NewMemoryStore(10, time.Hour)

	t.Run("returns and stores the result", func(t *testing.T) {
		wf := &fakeWorkflow{result: &testrun.TestResult{Success: true, Steps: []testrun.StepResult{}}}
		srv := newTestServer(t, wf, fakeSubmitter{}, store)

		resp := postJSON(t, srv.URL+"/test/run-sync", validRequest)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result testrun.TestResult
		decode(t, resp, &result)
		assert.True(t, result.Success)
		assert.Equal(t, "result_s1", result.ID)

		assert.Equal(t, testrun.BrowserChromium, wf.lastReq.Browser)
		assert.Equal(t, testrun.DefaultTimeoutMS, wf.lastReq.Timeout)

		var stored testrun.TestResult
		decode(t, get(t, srv.URL+"/test/results/s1"), &stored)
		assert.Equal(t, "result_s1", stored.ID)
	})

	t.Run("planning failure is a server error", func(t *testing.T) {
		wf := &fakeWorkflow{err: errors.New("planning failed: model unavailable")}
		srv := newTestServer(t, wf, fakeSubmitter{}, store)

		resp := postJSON(t, srv.URL+"/test/run-sync", map[string]interface{}{
			"instruction": "x", "url": "https://example.com", "session_id": "s2",
		})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body ErrorResponse
		decode(t, resp, &body)
		assert.Contains(t, body.Error, "planning failed")

		var stored testrun.TestResult
		decode(t, get(t, srv.URL+"/test/results/s2"), &stored)
		assert.Equal(t, "error_s2", stored.ID)
		assert.False(t, stored.Success)
	})
}

func TestRun_Validation(t *testing.T) {
	srv := newTestServer(t, &fakeWorkflow{}, fakeSubmitter{}, results.NewMemoryStore(10, time.Hour))

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "malformed json", body: "{", wantErr: "invalid request body"},
		{name: "missing instruction", body: `{"url":"https://example.com"}`, wantErr: testrun.ErrInvalidInstruction.Error()},
		{name: "relative url", body: `{"instruction":"x","url":"/login"}`, wantErr: testrun.ErrInvalidURL.Error()},
		{name: "unknown browser", body: `{"instruction":"x","url":"https://a.com","browser":"ie"}`, wantErr: testrun.ErrInvalidBrowser.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/test/run", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body ErrorResponse
			decode(t, resp, &body)
			assert.Equal(t, tt.wantErr, body.Error)
		})
	}
}

func TestRun_Async(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := results.NewMemoryStore(10, time.Hour)
	wf := &fakeWorkflow{result: &testrun.TestResult{Success: false, Error: "Element Not Found: #go"}}
	pool := runner.NewPool(1, 4, wf, store, logger.NewTestLogger())
	pool.Start(ctx)
	srv := newTestServer(t, wf, pool, store)

	resp := postJSON(t, srv.URL+"/test/run", validRequest)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted RunAcceptedResponse
	decode(t, resp, &accepted)
	assert.Equal(t, "s1", accepted.SessionID)
	assert.Equal(t, "/test/status/s1", accepted.StatusURL)

	require.Eventually(t, func() bool {
		var status StatusResponse
		r, err := http.Get(srv.URL + accepted.StatusURL)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		if json.NewDecoder(r.Body).Decode(&status) != nil {
			return false
		}
		return status.Status == results.StatusCompleted && status.Result != nil
	}, 2*time.Second, 10*time.Millisecond)

	var result testrun.TestResult
	decode(t, get(t, srv.URL+"/test/results/s1"), &result)
	assert.Equal(t, "Element Not Found: #go", result.Error)
}

func TestRun_QueueFull(t *testing.T) {
	srv := newTestServer(t, &fakeWorkflow{}, fakeSubmitter{err: runner.ErrQueueFull}, results.NewMemoryStore(10, time.Hour))

	resp := postJSON(t, srv.URL+"/test/run", validRequest)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatusAndResults(t *testing.T) {
	ctx := context.Background()
	store := results.NewMemoryStore(10, time.Hour)
	require.NoError(t, store.Put(ctx, "pending", results.NewRecord("pending")))
	srv := newTestServer(t, &fakeWorkflow{}, fakeSubmitter{}, store)

	var status StatusResponse
	resp := get(t, srv.URL+"/test/status/pending")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &status)
	assert.Equal(t, results.StatusPending, status.Status)
	assert.Equal(t, "Test is still running", status.Message)
	assert.Nil(t, status.Result)

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/test/results/pending").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/test/status/unknown").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/test/results/unknown").StatusCode)
}

func TestPlanAndGenerate(t *testing.T) {
	plan := &testplan.TestPlan{ID: "test_1", Name: "Login", URL: "https://example.com/login"}
	wf := &fakeWorkflow{plan: plan, code: "await page.goto('https://example.com/login');"}
	srv := newTestServer(t, wf, fakeSubmitter{}, results.NewMemoryStore(10, time.Hour))

	var gotPlan testplan.TestPlan
	resp := postJSON(t, srv.URL+"/test/plan", validRequest)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &gotPlan)
	assert.Equal(t, "test_1", gotPlan.ID)

	var generated GenerateResponse
	decode(t, postJSON(t, srv.URL+"/test/generate", validRequest), &generated)
	require.NotNil(t, generated.Plan)
	assert.Equal(t, "Login", generated.Plan.Name)
	assert.Equal(t, wf.code, generated.Code)

	wf.err = errors.New("planning failed")
	assert.Equal(t, http.StatusInternalServerError, postJSON(t, srv.URL+"/test/plan", validRequest).StatusCode)
	assert.Equal(t, http.StatusInternalServerError, postJSON(t, srv.URL+"/test/generate", validRequest).StatusCode)
}

func TestArtifacts(t *testing.T) {
	srv := newTestServer(t, &fakeWorkflow{}, fakeSubmitter{}, results.NewMemoryStore(10, time.Hour))

	resp := get(t, srv.URL+"/artifacts/screenshots/s1/error.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", buf.String())

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/artifacts/screenshots/s1/missing.png").StatusCode)
}

func TestLoggingMiddleware(t *testing.T) {
	log := logger.NewTestLogger()
	handler := NewLoggingMiddleware(log).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusInternalServerError, "boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, log.HasMessage("error", "request failed"))
}
