package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/sirupsen/logrus"
)

// MediaService is the acquisition surface the API exposes
type MediaService interface {
	Add(ctx context.Context, identifier, source string) (*models.MediaRecord, error)
	Refresh(ctx context.Context, identifier string) (*models.MediaRecord, error)
	Delete(ctx context.Context, identifier string, deleteFiles bool) ([]string, error)
	Get(ctx context.Context, identifier string) (*models.MediaRecord, error)
	List(ctx context.Context, limit int) ([]*models.MediaRecord, error)
	Download(ctx context.Context, identifier string) (string, error)
}

// MediaHandler serves the /api/media routes
type MediaHandler struct {
	service MediaService
	logger  *logrus.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service MediaService, logger *logrus.Logger) *MediaHandler {
	return &MediaHandler{service: service, logger: logger}
}

// AddRequest is the body of POST /api/media
type AddRequest struct {
	Identifier string `json:"identifier"`
	Source     string `json:"source"`
}

// Register mounts the routes on mux
func (h *MediaHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/media", h.list)
	mux.HandleFunc("POST /api/media", h.add)
	mux.HandleFunc("GET /api/media/{id}", h.get)
	mux.HandleFunc("DELETE /api/media/{id}", h.delete)
	mux.HandleFunc("POST /api/media/{id}/refresh", h.refresh)
	mux.HandleFunc("POST /api/media/{id}/download", h.download)
}

func (h *MediaHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Kind: "bad_request"})
			return
		}
		limit = n
	}
	medias, err := h.service.List(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, medias)
}

func (h *MediaHandler) add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Debug("Failed to decode add request")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payload", Kind: "bad_request"})
		return
	}
	if req.Source == "" {
		req.Source = models.AnySource
	}

	media, err := h.service.Add(r.Context(), req.Identifier, req.Source)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, media)
}

func (h *MediaHandler) get(w http.ResponseWriter, r *http.Request) {
	media, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if media == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "media not found", Kind: models.Kind(models.ErrNotFound)})
		return
	}
	writeJSON(w, http.StatusOK, media)
}

func (h *MediaHandler) delete(w http.ResponseWriter, r *http.Request) {
	files, _ := strconv.ParseBool(r.URL.Query().Get("files"))
	removed, err := h.service.Delete(r.Context(), r.PathValue("id"), files)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "files_removed": removed})
}

func (h *MediaHandler) refresh(w http.ResponseWriter, r *http.Request) {
	media, err := h.service.Refresh(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, media)
}

func (h *MediaHandler) download(w http.ResponseWriter, r *http.Request) {
	jobID, err := h.service.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}
