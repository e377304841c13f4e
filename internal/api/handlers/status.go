package handlers

import (
	"context"
	"net/http"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/queue"
	"github.com/sirupsen/logrus"
)

// TranslationCounter counts records by translation status
type TranslationCounter interface {
	CountByTranslationStatus(ctx context.Context) (map[models.TranslationStatus]int64, error)
}

// QueueSnapshotter summarises the download queue
type QueueSnapshotter interface {
	Snapshot(ctx context.Context) (*queue.Snapshot, error)
}

// StatusHandler handles status requests
type StatusHandler struct {
	counter TranslationCounter
	queue   QueueSnapshotter
	sources []string
	logger  *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(counter TranslationCounter, queue QueueSnapshotter, sources []string, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		counter: counter,
		queue:   queue,
		sources: sources,
		logger:  logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalMedias   int64                              `json:"total_medias"`
	ByTranslation map[models.TranslationStatus]int64 `json:"by_translation"`
	Queue         *queue.Snapshot                    `json:"queue"`
	Sources       []string                           `json:"sources"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.counter.CountByTranslationStatus(ctx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	snap, err := h.queue.Snapshot(ctx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response := StatusResponse{
		ByTranslation: counts,
		Queue:         snap,
		Sources:       h.sources,
	}
	for _, n := range counts {
		response.TotalMedias += n
	}

	writeJSON(w, http.StatusOK, response)
}
