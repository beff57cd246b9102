package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ecoverify/ecoverify-api/internal/db"
	"github.com/ecoverify/ecoverify-api/internal/middleware"
	"github.com/ecoverify/ecoverify-api/internal/models"
	"github.com/ecoverify/ecoverify-api/internal/telemetry"
)

const noRecordingsMessage = "No recordings found for this company/device"

// RecordingHandler serves reading ingestion and queries
type RecordingHandler struct {
	gateway      *telemetry.Gateway
	enforceScope bool
}

// NewRecordingHandler creates a new recording handler. With enforceScope
// set, reads are limited to the session's own company.
func NewRecordingHandler(gateway *telemetry.Gateway, enforceScope bool) *RecordingHandler {
	return &RecordingHandler{gateway: gateway, enforceScope: enforceScope}
}

type batchResponse struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
}

type singleResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// IngestBatch stores a batch of samples for one device
func (h *RecordingHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UUID == "" {
		respondError(w, http.StatusBadRequest, "Device uuid is required")
		return
	}

	result, err := h.gateway.IngestBatch(r.Context(), req.UUID, req.Data, telemetry.SourceBatch)
	if errors.Is(err, telemetry.ErrInvalidSample) {
		respondError(w, http.StatusBadRequest, "Invalid batch")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, batchResponse{Message: "Batch ingested", Inserted: result.Inserted})
}

// IngestReading stores a single pre-shaped reading
func (h *RecordingHandler) IngestReading(w http.ResponseWriter, r *http.Request) {
	var req models.SingleReadingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id, err := h.gateway.IngestReading(r.Context(), req)
	switch {
	case errors.Is(err, telemetry.ErrMissingField):
		respondError(w, http.StatusBadRequest, "Missing metadata, timestamp or sensor_data")
	case errors.Is(err, telemetry.ErrInvalidTimestamp):
		respondError(w, http.StatusBadRequest, "Invalid timestamp")
	case err != nil:
		respondInternal(w, r, err)
	default:
		respondJSON(w, http.StatusCreated, singleResponse{Message: "Reading stored", ID: id})
	}
}

// Latest returns the newest reading for a company and optional device
func (h *RecordingHandler) Latest(w http.ResponseWriter, r *http.Request) {
	company, ok := requireCompany(w, r, h.enforceScope)
	if !ok {
		return
	}

	reading, err := h.gateway.Latest(r.Context(), company, r.URL.Query().Get("device"))
	if errors.Is(err, db.ErrNotFound) {
		respondNotFound(w, noRecordingsMessage)
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Latest recording retrieved", Data: reading})
}

// History returns the last N readings for a company and optional device
func (h *RecordingHandler) History(w http.ResponseWriter, r *http.Request) {
	company, ok := requireCompany(w, r, h.enforceScope)
	if !ok {
		return
	}

	limit := int64(telemetry.DefaultHistoryLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, telemetry.ErrInvalidLimit.Error())
			return
		}
		limit = parsed
	}
	if limit > telemetry.MaxHistoryLimit {
		limit = telemetry.MaxHistoryLimit
	}

	readings, err := h.gateway.History(r.Context(), company, r.URL.Query().Get("device"), limit)
	if errors.Is(err, db.ErrNotFound) {
		respondNotFound(w, noRecordingsMessage)
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Last %d recordings retrieved", limit),
		Data:    readings,
	})
}

// requireCompany reads the company query parameter and, when enforceScope
// is set, checks it against the session's company.
func requireCompany(w http.ResponseWriter, r *http.Request, enforceScope bool) (string, bool) {
	company := r.URL.Query().Get("company")
	if company == "" {
		respondError(w, http.StatusBadRequest, "Company name is required")
		return "", false
	}
	if enforceScope {
		claims, ok := middleware.GetClaimsFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return "", false
		}
		if claims.Company != company {
			respondError(w, http.StatusForbidden, "Access denied for company")
			return "", false
		}
	}
	return company, true
}
