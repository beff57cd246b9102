// Package telemetry implements the reading ingestion and query rules on
// top of the account and reading collections.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecoverify/ecoverify-api/internal/db"
	"github.com/ecoverify/ecoverify-api/internal/metrics"
	"github.com/ecoverify/ecoverify-api/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 1000
)

// Ingestion sources, used as metric labels.
const (
	SourceBatch  = "batch"
	SourceSingle = "single"
	SourceMQTT   = "mqtt"
)

var (
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidSample    = errors.New("invalid sample")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidLimit     = errors.New("limit must be a positive integer")
)

// Gateway resolves devices against the company directory, normalizes
// samples and reads and writes readings.
type Gateway struct {
	accounts db.AccountCollection
	readings db.ReadingCollection
}

// NewGateway creates a new telemetry gateway
func NewGateway(accounts db.AccountCollection, readings db.ReadingCollection) *Gateway {
	return &Gateway{accounts: accounts, readings: readings}
}

// IngestBatch stores one reading per sample for the device identified by
// uuid. A device that no company owns is dropped without error and
// reports zero inserted readings. A malformed sample rejects the whole
// batch before anything is written.
func (g *Gateway) IngestBatch(ctx context.Context, uuid string, samples []models.Sample, source string) (models.IngestResult, error) {
	if uuid == "" {
		return models.IngestResult{}, fmt.Errorf("%w: uuid", ErrMissingField)
	}

	account, err := g.accounts.FindAccountByDeviceID(ctx, uuid)
	if errors.Is(err, db.ErrNotFound) {
		log.WithFields(log.Fields{"uuid": uuid, "samples": len(samples), "source": source}).
			Warn("Dropping batch for unregistered device")
		metrics.DroppedBatches.WithLabelValues(source).Inc()
		return models.IngestResult{}, nil
	}
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("device lookup: %w", err)
	}

	device, _ := account.FindDevice(uuid)
	metadata := models.ReadingMetadata{
		Company:  account.CompanyName,
		Location: device.Location,
		UUID:     uuid,
	}

	readings := make([]models.Reading, 0, len(samples))
	for i, sample := range samples {
		reading, err := normalizeSample(sample, metadata)
		if err != nil {
			return models.IngestResult{}, fmt.Errorf("%w %d: %w", ErrInvalidSample, i, err)
		}
		readings = append(readings, reading)
	}
	if len(readings) == 0 {
		return models.IngestResult{}, nil
	}

	inserted, err := g.readings.InsertReadings(ctx, readings)
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("insert readings: %w", err)
	}
	metrics.ObserveReadings(source, readings)
	return models.IngestResult{Inserted: inserted}, nil
}

// IngestReading stores a pre-shaped reading. The metadata is trusted as
// given; no directory check is made on this path.
func (g *Gateway) IngestReading(ctx context.Context, req models.SingleReadingRequest) (string, error) {
	if req.Metadata == nil {
		return "", fmt.Errorf("%w: metadata", ErrMissingField)
	}
	if req.SensorData == nil {
		return "", fmt.Errorf("%w: sensor_data", ErrMissingField)
	}
	ts, err := ParseTimestamp(req.Timestamp)
	if err != nil {
		return "", err
	}

	reading := models.Reading{
		Metadata:   *req.Metadata,
		SensorData: req.SensorData,
		Timestamp:  ts,
	}
	id, err := g.readings.InsertReading(ctx, reading)
	if err != nil {
		return "", fmt.Errorf("insert reading: %w", err)
	}
	metrics.ObserveRawReadings(SourceSingle, []models.Reading{reading})
	return id, nil
}

// Latest returns the newest reading for the company, optionally narrowed
// to one device. db.ErrNotFound is returned when the scope is empty.
func (g *Gateway) Latest(ctx context.Context, company, deviceID string) (*models.Reading, error) {
	readings, err := g.History(ctx, company, deviceID, 1)
	if err != nil {
		return nil, err
	}
	return &readings[0], nil
}

// History returns up to limit readings for the scope, newest first.
// db.ErrNotFound is returned when the scope is empty.
func (g *Gateway) History(ctx context.Context, company, deviceID string, limit int64) ([]models.Reading, error) {
	if company == "" {
		return nil, fmt.Errorf("%w: company", ErrMissingField)
	}
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	readings, err := g.readings.FindReadings(ctx, models.ReadingQuery{
		Company:  company,
		DeviceID: deviceID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("find readings: %w", err)
	}
	if len(readings) == 0 {
		return nil, db.ErrNotFound
	}
	if int64(len(readings)) > limit {
		readings = readings[:limit]
	}
	return readings, nil
}

// Devices returns the device directory of a company. db.ErrNotFound is
// returned when the company has no account or no devices.
func (g *Gateway) Devices(ctx context.Context, company string) ([]models.Device, error) {
	if company == "" {
		return nil, fmt.Errorf("%w: company", ErrMissingField)
	}
	account, err := g.accounts.FindAccountByCompany(ctx, company)
	if err != nil {
		return nil, err
	}
	if len(account.Devices) == 0 {
		return nil, db.ErrNotFound
	}
	return account.Devices, nil
}

// normalizeSample converts a raw sample into a reading: timestamp to UTC
// and humidity from percentage points to a fraction.
func normalizeSample(sample models.Sample, metadata models.ReadingMetadata) (models.Reading, error) {
	if sample.Temperature == nil {
		return models.Reading{}, fmt.Errorf("%w: temperature", ErrMissingField)
	}
	if sample.Humidity == nil {
		return models.Reading{}, fmt.Errorf("%w: humidity", ErrMissingField)
	}
	ts, err := ParseTimestamp(sample.Timestamp)
	if err != nil {
		return models.Reading{}, err
	}
	return models.Reading{
		Metadata: metadata,
		SensorData: map[string]float64{
			"temperature": *sample.Temperature,
			"humidity":    *sample.Humidity / 100,
		},
		Timestamp: ts,
	}, nil
}
