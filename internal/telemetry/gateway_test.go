package telemetry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/db"
	"github.com/ecoverify/ecoverify-api/internal/db/dbmock"
	"github.com/ecoverify/ecoverify-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 { return &v }

func sample(temp, humidity float64, ts string) models.Sample {
	return models.Sample{
		Temperature: float(temp),
		Humidity:    float(humidity),
		Timestamp:   json.RawMessage(`"` + ts + `"`),
	}
}

func acme() *models.Account {
	return &models.Account{
		CompanyName: "acme",
		Devices: []models.Device{
			{DeviceID: "dev-1", Location: "roof"},
			{DeviceID: "dev-2", Location: "basement"},
		},
	}
}

func newGateway() (*Gateway, *dbmock.AccountCollection, *dbmock.ReadingCollection) {
	accounts := new(dbmock.AccountCollection)
	readings := new(dbmock.ReadingCollection)
	return NewGateway(accounts, readings), accounts, readings
}

func TestIngestBatch_ValidBatch(t *testing.T) {
	gw, accounts, readings := newGateway()
	accounts.On("FindAccountByDeviceID", mock.Anything, "dev-2").Return(acme(), nil)

	var stored []models.Reading
	readings.On("InsertReadings", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).([]models.Reading) }).
		Return(3, nil)

	samples := []models.Sample{
		sample(21.0, 55, "2025-03-01T12:00:00Z"),
		sample(21.5, 60, "2025-03-01T12:01:00Z"),
		sample(22.0, 100, "2025-03-01T12:02:00Z"),
	}
	result, err := gw.IngestBatch(context.Background(), "dev-2", samples, SourceBatch)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)

	require.Len(t, stored, len(samples))
	for _, r := range stored {
		assert.Equal(t, models.ReadingMetadata{Company: "acme", Location: "basement", UUID: "dev-2"}, r.Metadata)
	}
	assert.Equal(t, 0.55, stored[0].SensorData["humidity"])
	assert.Equal(t, 0.6, stored[1].SensorData["humidity"])
	assert.Equal(t, 1.0, stored[2].SensorData["humidity"])
	assert.Equal(t, 21.0, stored[0].SensorData["temperature"])
	assert.Equal(t, time.Date(2025, 3, 1, 12, 1, 0, 0, time.UTC), stored[1].Timestamp)

	accounts.AssertExpectations(t)
	readings.AssertExpectations(t)
}

func TestIngestBatch_UnknownDevice(t *testing.T) {
	gw, accounts, readings := newGateway()
	accounts.On("FindAccountByDeviceID", mock.Anything, "ghost").Return(nil, db.ErrNotFound)

	result, err := gw.IngestBatch(context.Background(), "ghost",
		[]models.Sample{sample(20, 50, "2025-03-01T12:00:00Z")}, SourceBatch)

	assert.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	readings.AssertNotCalled(t, "InsertReadings", mock.Anything, mock.Anything)
}

func TestIngestBatch_LookupError(t *testing.T) {
	gw, accounts, readings := newGateway()
	accounts.On("FindAccountByDeviceID", mock.Anything, "dev-1").Return(nil, assert.AnError)

	_, err := gw.IngestBatch(context.Background(), "dev-1",
		[]models.Sample{sample(20, 50, "2025-03-01T12:00:00Z")}, SourceBatch)

	assert.ErrorIs(t, err, assert.AnError)
	readings.AssertNotCalled(t, "InsertReadings", mock.Anything, mock.Anything)
}

func TestIngestBatch_MalformedSampleRejectsBatch(t *testing.T) {
	gw, accounts, readings := newGateway()
	accounts.On("FindAccountByDeviceID", mock.Anything, "dev-1").Return(acme(), nil)

	tests := []struct {
		name    string
		sample  models.Sample
		wantErr error
	}{
		{"missing temperature", models.Sample{Humidity: float(50), Timestamp: json.RawMessage(`1700000000`)}, ErrMissingField},
		{"missing humidity", models.Sample{Temperature: float(20), Timestamp: json.RawMessage(`1700000000`)}, ErrMissingField},
		{"missing timestamp", models.Sample{Temperature: float(20), Humidity: float(50)}, ErrMissingField},
		{"bad timestamp", sample(20, 50, "yesterday"), ErrInvalidTimestamp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := []models.Sample{sample(20, 50, "2025-03-01T12:00:00Z"), tt.sample}
			_, err := gw.IngestBatch(context.Background(), "dev-1", samples, SourceBatch)
			assert.ErrorIs(t, err, ErrInvalidSample)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	readings.AssertNotCalled(t, "InsertReadings", mock.Anything, mock.Anything)
}

func TestIngestBatch_EmptyBatch(t *testing.T) {
	gw, accounts, readings := newGateway()
	accounts.On("FindAccountByDeviceID", mock.Anything, "dev-1").Return(acme(), nil)

	result, err := gw.IngestBatch(context.Background(), "dev-1", nil, SourceBatch)
	assert.NoError(t, err)
	assert.Zero(t, result.Inserted)
	readings.AssertNotCalled(t, "InsertReadings", mock.Anything, mock.Anything)
}

func TestIngestBatch_MissingUUID(t *testing.T) {
	gw, accounts, _ := newGateway()
	_, err := gw.IngestBatch(context.Background(), "", nil, SourceBatch)
	assert.ErrorIs(t, err, ErrMissingField)
	accounts.AssertNotCalled(t, "FindAccountByDeviceID", mock.Anything, mock.Anything)
}

func TestIngestBatch_StorageError(t *testing.T) {
	gw, accounts, readings := newGateway()
	accounts.On("FindAccountByDeviceID", mock.Anything, "dev-1").Return(acme(), nil)
	readings.On("InsertReadings", mock.Anything, mock.Anything).Return(0, assert.AnError)

	_, err := gw.IngestBatch(context.Background(), "dev-1",
		[]models.Sample{sample(20, 50, "2025-03-01T12:00:00Z")}, SourceBatch)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestIngestReading(t *testing.T) {
	gw, accounts, readings := newGateway()
	meta := &models.ReadingMetadata{Company: "anyone", Location: "nowhere", UUID: "not-registered"}

	readings.On("InsertReading", mock.Anything, models.Reading{
		Metadata:   *meta,
		SensorData: map[string]float64{"humidity": 55},
		Timestamp:  time.Unix(1700000000, 0).UTC(),
	}).Return("abc123", nil)

	id, err := gw.IngestReading(context.Background(), models.SingleReadingRequest{
		Metadata:   meta,
		Timestamp:  json.RawMessage(`1700000000`),
		SensorData: map[string]float64{"humidity": 55},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	accounts.AssertNotCalled(t, "FindAccountByDeviceID", mock.Anything, mock.Anything)
	readings.AssertExpectations(t)
}

func TestIngestReading_MissingFields(t *testing.T) {
	gw, _, readings := newGateway()
	meta := &models.ReadingMetadata{Company: "acme"}
	data := map[string]float64{"temperature": 20}
	ts := json.RawMessage(`"2025-03-01T12:00:00Z"`)

	for name, req := range map[string]models.SingleReadingRequest{
		"metadata":    {Timestamp: ts, SensorData: data},
		"timestamp":   {Metadata: meta, SensorData: data},
		"sensor_data": {Metadata: meta, Timestamp: ts},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gw.IngestReading(context.Background(), req)
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}
	readings.AssertNotCalled(t, "InsertReading", mock.Anything, mock.Anything)
}

func TestLatest(t *testing.T) {
	gw, _, readings := newGateway()
	newest := models.Reading{Metadata: models.ReadingMetadata{Company: "acme", UUID: "dev-1"}, Timestamp: time.Now()}
	readings.On("FindReadings", mock.Anything, models.ReadingQuery{Company: "acme", DeviceID: "dev-1", Limit: 1}).
		Return([]models.Reading{newest}, nil)

	got, err := gw.Latest(context.Background(), "acme", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, newest, *got)
}

func TestLatest_NotFound(t *testing.T) {
	gw, _, readings := newGateway()
	readings.On("FindReadings", mock.Anything, models.ReadingQuery{Company: "acme", Limit: 1}).
		Return([]models.Reading{}, nil)

	_, err := gw.Latest(context.Background(), "acme", "")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestHistory(t *testing.T) {
	gw, _, readings := newGateway()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.Reading{{Timestamp: base.Add(2 * time.Minute)}, {Timestamp: base.Add(time.Minute)}, {Timestamp: base}}
	readings.On("FindReadings", mock.Anything, models.ReadingQuery{Company: "acme", Limit: 3}).Return(rows, nil)

	got, err := gw.History(context.Background(), "acme", "", 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 3)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.After(got[i].Timestamp))
	}
}

func TestHistory_TrimsToLimit(t *testing.T) {
	gw, _, readings := newGateway()
	rows := []models.Reading{{}, {}, {}}
	readings.On("FindReadings", mock.Anything, models.ReadingQuery{Company: "acme", Limit: 2}).Return(rows, nil)

	got, err := gw.History(context.Background(), "acme", "", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestHistory_Validation(t *testing.T) {
	gw, _, readings := newGateway()

	_, err := gw.History(context.Background(), "", "", 10)
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = gw.History(context.Background(), "acme", "", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	readings.On("FindReadings", mock.Anything, models.ReadingQuery{Company: "acme", Limit: MaxHistoryLimit}).
		Return([]models.Reading{{}}, nil)
	_, err = gw.History(context.Background(), "acme", "", MaxHistoryLimit+500)
	assert.NoError(t, err)
}

func TestDevices(t *testing.T) {
	gw, accounts, _ := newGateway()
	accounts.On("FindAccountByCompany", mock.Anything, "acme").Return(acme(), nil)
	accounts.On("FindAccountByCompany", mock.Anything, "empty").Return(&models.Account{CompanyName: "empty"}, nil)
	accounts.On("FindAccountByCompany", mock.Anything, "nobody").Return(nil, db.ErrNotFound)

	devices, err := gw.Devices(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	_, err = gw.Devices(context.Background(), "empty")
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = gw.Devices(context.Background(), "nobody")
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = gw.Devices(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingField)
}
