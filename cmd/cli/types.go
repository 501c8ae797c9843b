package main

import (
	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/hairizuan-noorazman/testpilot/testrun"
)

// RunAcceptedResponse matches POST /test/run.
type RunAcceptedResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	StatusURL string `json:"status_url"`
}

// StatusResponse matches GET /test/status/{session_id}.
type StatusResponse struct {
	SessionID string              `json:"session_id"`
	Status    string              `json:"status"`
	Message   string              `json:"message,omitempty"`
	Result    *testrun.TestResult `json:"result,omitempty"`
}

// GenerateResponse matches POST /test/generate.
type GenerateResponse struct {
	Plan *testplan.TestPlan `json:"plan"`
	Code string             `json:"code"`
}

// HealthResponse matches GET /health.
type HealthResponse struct {
	Status            string `json:"status"`
	LLMConfigured     bool   `json:"llm_configured"`
	BrowserConfigured bool   `json:"browser_configured"`
}
