// Package prediction calls the external CO2 prediction service.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/models"
	"github.com/go-resty/resty/v2"
)

var ErrRemote = errors.New("prediction service error")

// Client is a thin wrapper over the prediction service's /predict endpoint.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Predict forwards the features and returns the model output. A non-2xx
// answer is reported as ErrRemote with the service's error body.
func (c *Client) Predict(ctx context.Context, req models.PredictionRequest) (float64, error) {
	var out models.PredictionResponse
	var remoteErr models.ErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&remoteErr).
		Post("/predict")
	if err != nil {
		return 0, fmt.Errorf("prediction request: %w", err)
	}
	if resp.IsError() {
		msg := remoteErr.Error
		if msg == "" {
			msg = resp.String()
		}
		return 0, fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode(), msg)
	}
	return out.Prediction, nil
}
