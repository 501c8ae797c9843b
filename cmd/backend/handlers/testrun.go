package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/results"
	"github.com/hairizuan-noorazman/testpilot/runner"
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// Workflow is the part of workflow.Engine the handlers use.
type Workflow interface {
	Run(ctx context.Context, req testrun.Request) (*testrun.TestResult, error)
	Plan(ctx context.Context, req testrun.Request) (*testplan.TestPlan, error)
	Generate(ctx context.Context, req testrun.Request) (*testplan.TestPlan, string, error)
}

// Submitter queues asynchronous runs. runner.Pool satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req testrun.Request) (string, error)
}

// TestRunHandler exposes the test workflow over HTTP.
type TestRunHandler struct {
	workflow  Workflow
	submitter Submitter
	store     results.Store
	logger    logger.Logger
}

func NewTestRunHandler(wf Workflow, submitter Submitter, store results.Store, log logger.Logger) *TestRunHandler {
	return &TestRunHandler{
		workflow:  wf,
		submitter: submitter,
		store:     store,
		logger:    log,
	}
}

// RunAcceptedResponse is returned when an asynchronous run is queued.
type RunAcceptedResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	StatusURL string `json:"status_url"`
}

// StatusResponse reports the progress of a run.
type StatusResponse struct {
	SessionID string              `json:"session_id"`
	Status    results.Status      `json:"status"`
	Message   string              `json:"message,omitempty"`
	Result    *testrun.TestResult `json:"result,omitempty"`
}

// GenerateResponse carries a plan and the code generated from it.
type GenerateResponse struct {
	Plan *testplan.TestPlan `json:"plan"`
	Code string             `json:"code"`
}

// decodeRequest parses and validates a test request, writing the error
// response itself when it fails.
func (h *TestRunHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (testrun.Request, bool) {
	var req testrun.Request
	if err := parseJSON(w, r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

// Run queues a run and returns immediately.
func (h *TestRunHandler) Run(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	h.logger.Info(r.Context(), "received test request", map[string]interface{}{
		"session_id":  req.SessionID,
		"instruction": req.Instruction,
	})

	id, err := h.submitter.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, runner.ErrQueueFull) || errors.Is(err, runner.ErrPoolStopped) {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.Error(r.Context(), "failed to start test", map[string]interface{}{
			"error":      err.Error(),
			"session_id": req.SessionID,
		})
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, RunAcceptedResponse{
		Message:   "Test execution started",
		SessionID: id,
		StatusURL: fmt.Sprintf("/test/status/%s", id),
	})
}

// RunSync runs the workflow in the request and returns its result.
func (h *TestRunHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	ctx := logger.ContextWithSession(r.Context(), req.SessionID)

	rec := results.NewRecord(req.SessionID)
	_ = rec.Start()
	if err := h.store.Put(ctx, req.SessionID, rec); err != nil {
		h.logger.Warn(ctx, "failed to record running test", map[string]interface{}{"error": err.Error()})
	}

	result, err := h.workflow.Run(ctx, req)
	if err != nil {
		h.logger.Error(ctx, "test execution failed", map[string]interface{}{"error": err.Error()})
		result = testrun.NewErrorResult(req.SessionID, "", err.Error())
		h.complete(ctx, rec, result)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.complete(ctx, rec, result)
	respondJSON(w, http.StatusOK, result)
}

func (h *TestRunHandler) complete(ctx context.Context, rec *results.Record, result *testrun.TestResult) {
	if err := rec.Complete(result); err != nil {
		return
	}
	if err := h.store.Put(ctx, rec.SessionID, rec); err != nil {
		h.logger.Warn(ctx, "failed to store test result", map[string]interface{}{"error": err.Error()})
	}
}

// Status reports whether a run is pending, running or completed.
func (h *TestRunHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]
	rec, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	resp := StatusResponse{SessionID: id, Status: rec.Status}
	switch rec.Status {
	case results.StatusCompleted:
		resp.Result = rec.Result
	default:
		resp.Message = "Test is still running"
	}
	respondJSON(w, http.StatusOK, resp)
}

// Results returns the result of a completed run.
func (h *TestRunHandler) Results(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]
	rec, ok := h.lookup(w, r, id)
	if !ok {
		return
	}
	if rec.Status != results.StatusCompleted || rec.Result == nil {
		respondError(w, http.StatusNotFound, "Test results not found")
		return
	}
	respondJSON(w, http.StatusOK, rec.Result)
}

func (h *TestRunHandler) lookup(w http.ResponseWriter, r *http.Request, id string) (*results.Record, bool) {
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Test results not found")
			return nil, false
		}
		h.logger.Error(r.Context(), "failed to get test record", map[string]interface{}{
			"error":      err.Error(),
			"session_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to get test status")
		return nil, false
	}
	return rec, true
}

// Plan returns a test plan without executing it.
func (h *TestRunHandler) Plan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	plan, err := h.workflow.Plan(r.Context(), req)
	if err != nil {
		h.logger.Error(r.Context(), "failed to create test plan", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// Generate returns a plan and its generated test code.
func (h *TestRunHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	plan, code, err := h.workflow.Generate(r.Context(), req)
	if err != nil {
		h.logger.Error(r.Context(), "failed to generate test code", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, GenerateResponse{Plan: plan, Code: code})
}
