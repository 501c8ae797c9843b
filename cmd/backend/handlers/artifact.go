package handlers

import (
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/storage"
)

// ArtifactHandler serves stored screenshots and other run artifacts.
type ArtifactHandler struct {
	storage storage.BlobStorage
	logger  logger.Logger
}

func NewArtifactHandler(store storage.BlobStorage, log logger.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		storage: store,
		logger:  log,
	}
}

// Download streams the artifact named by the {key} path variable.
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request) {
	key, err := storage.CleanKey(mux.Vars(r)["key"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid artifact path")
		return
	}

	reader, err := h.storage.Download(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			respondError(w, http.StatusNotFound, "artifact not found")
			return
		}
		h.logger.Error(r.Context(), "failed to download from storage", map[string]interface{}{
			"error": err.Error(),
			"path":  key,
		})
		respondError(w, http.StatusInternalServerError, "failed to download artifact")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", storage.ContentType(key))
	w.Header().Set("Content-Disposition", "inline; filename=\""+path.Base(key)+"\"")
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error(r.Context(), "failed to stream artifact", map[string]interface{}{
			"error": err.Error(),
			"path":  key,
		})
	}
}
