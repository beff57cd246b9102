package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Total readings persisted, labeled by ingestion source
var ReadingsIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ecoverify_readings_ingested_total",
		Help: "The total number of readings written to storage",
	},
	[]string{"source"},
)

// Batches for devices missing from every company's directory
var DroppedBatches = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ecoverify_dropped_batches_total",
		Help: "Batches dropped because no company owns the device",
	},
	[]string{"source"},
)

var TemperatureHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ecoverify_temperature_celsius",
		Help:    "Distribution of ingested temperature readings",
		Buckets: []float64{-10, 0, 10, 20, 25, 30, 40, 60},
	},
	[]string{"source"},
)

// Only normalized samples are observed, so buckets are 0..1
var HumidityHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ecoverify_humidity_ratio",
		Help:    "Distribution of ingested humidity readings (fraction)",
		Buckets: []float64{0.1, 0.2, 0.4, 0.6, 0.8, 0.9, 1},
	},
	[]string{"source"},
)

var DataLag = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ecoverify_data_lag_seconds",
		Help:    "Time difference between sample timestamp and ingestion",
		Buckets: []float64{1, 5, 30, 60, 300, 3600},
	},
	[]string{"source"},
)

var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ecoverify_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// ObserveReadings records readings whose humidity was normalized to a
// fraction on ingest.
func ObserveReadings(source string, readings []models.Reading) {
	observe(source, readings, true)
}

// ObserveRawReadings records readings stored as submitted. Their humidity
// unit is unknown, so the humidity histogram is skipped.
func ObserveRawReadings(source string, readings []models.Reading) {
	observe(source, readings, false)
}

func observe(source string, readings []models.Reading, normalized bool) {
	ReadingsIngested.WithLabelValues(source).Add(float64(len(readings)))
	now := time.Now()
	for _, r := range readings {
		if v, ok := r.SensorData["temperature"]; ok {
			TemperatureHistogram.WithLabelValues(source).Observe(v)
		}
		if v, ok := r.SensorData["humidity"]; ok && normalized {
			HumidityHistogram.WithLabelValues(source).Observe(v)
		}
		DataLag.WithLabelValues(source).Observe(now.Sub(r.Timestamp).Seconds())
	}
}

// ObserveRequest records one HTTP request. The route template is used
// instead of the raw path to keep label cardinality bounded.
func ObserveRequest(r *http.Request, status int, elapsed time.Duration) {
	route := "unmatched"
	if current := mux.CurrentRoute(r); current != nil {
		if tpl, err := current.GetPathTemplate(); err == nil {
			route = tpl
		}
	}
	RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
