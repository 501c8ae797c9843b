package handlers

import (
	"net/http"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status            string `json:"status"`
	LLMConfigured     bool   `json:"llm_configured"`
	BrowserConfigured bool   `json:"browser_configured"`
}

// HealthHandler reports liveness and which integrations are configured.
type HealthHandler struct {
	llmConfigured     bool
	browserConfigured bool
}

func NewHealthHandler(llmConfigured, browserConfigured bool) *HealthHandler {
	return &HealthHandler{
		llmConfigured:     llmConfigured,
		browserConfigured: browserConfigured,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:            "healthy",
		LLMConfigured:     h.llmConfigured,
		BrowserConfigured: h.browserConfigured,
	})
}
