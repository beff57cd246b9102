package handlers

import (
	"context"
	"net/http"

	"github.com/ecoverify/ecoverify-api/internal/models"
)

// Predictor produces a CO2 prediction from sensor features
type Predictor interface {
	Predict(ctx context.Context, req models.PredictionRequest) (float64, error)
}

// PredictHandler forwards prediction requests to the model service
type PredictHandler struct {
	predictor Predictor
}

// NewPredictHandler creates a new prediction handler
func NewPredictHandler(predictor Predictor) *PredictHandler {
	return &PredictHandler{predictor: predictor}
}

// Predict validates the features and returns the model's prediction
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if missing := req.MissingFeatures(); len(missing) > 0 {
		respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   "Missing required features",
			Details: missing,
		})
		return
	}

	prediction, err := h.predictor.Predict(r.Context(), req)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.PredictionResponse{Prediction: prediction})
}
