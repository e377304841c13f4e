package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// StatusFor maps an error kind onto an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidIdentifier), errors.Is(err, models.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrMaxRetriesExceeded):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("Request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: models.Kind(err)})
}
