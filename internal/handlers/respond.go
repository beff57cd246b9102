package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ecoverify/ecoverify-api/internal/models"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes bounds request bodies; a batch of a few thousand samples fits comfortably.
const maxBodyBytes = 4 << 20

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// respondInternal reports a storage or network fault. The underlying
// error is echoed in details.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	log.WithError(err).WithField("path", r.URL.Path).Error("Internal error")
	respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
		Error:   "Internal Server Error",
		Details: err.Error(),
	})
}

// respondNotFound writes the success-shaped not-found body used by the read endpoints.
func respondNotFound(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, models.ErrorResponse{Error: message})
}

func decodeJSON(r *http.Request, out interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("request body too large")
	}
	return json.Unmarshal(body, out)
}
