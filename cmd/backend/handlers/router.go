package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/testpilot/logger"
)

// RootResponse describes the service at /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// Routes bundles the handlers mounted by NewRouter. Nil handlers are not
// mounted.
type Routes struct {
	Version   string
	Tests     *TestRunHandler
	Health    *HealthHandler
	Artifacts *ArtifactHandler
	Metrics   http.Handler
}

func NewRouter(routes Routes, log logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(NewLoggingMiddleware(log).Handler)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, RootResponse{
			Message: "testpilot API",
			Version: routes.Version,
			Status:  "running",
		})
	}).Methods(http.MethodGet)

	if routes.Health != nil {
		router.HandleFunc("/health", routes.Health.Health).Methods(http.MethodGet)
	}
	if routes.Metrics != nil {
		router.Handle("/metrics", routes.Metrics).Methods(http.MethodGet)
	}

	if t := routes.Tests; t != nil {
		sub := router.PathPrefix("/test").Subrouter()
		sub.HandleFunc("/run", t.Run).Methods(http.MethodPost)
		sub.HandleFunc("/run-sync", t.RunSync).Methods(http.MethodPost)
		sub.HandleFunc("/status/{session_id}", t.Status).Methods(http.MethodGet)
		sub.HandleFunc("/results/{session_id}", t.Results).Methods(http.MethodGet)
		sub.HandleFunc("/plan", t.Plan).Methods(http.MethodPost)
		sub.HandleFunc("/generate", t.Generate).Methods(http.MethodPost)
	}

	if routes.Artifacts != nil {
		router.HandleFunc("/artifacts/{key:.+}", routes.Artifacts.Download).Methods(http.MethodGet)
	}

	return router
}
