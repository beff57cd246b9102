package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// epochMillisThreshold separates unix seconds from unix milliseconds.
	epochMillisThreshold = 1e12
	// maxEpochMillis is 9999-12-31T23:59:59.999Z.
	maxEpochMillis = 253402300799999
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp coerces a raw JSON timestamp into a UTC time. Strings are
// parsed with the layouts above (zone-less layouts are taken as UTC);
// numbers are unix epoch seconds, or milliseconds when above 1e12.
func ParseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("%w: timestamp", ErrMissingField)
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
		}
		return parseTimestampString(strings.TrimSpace(s))
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimestamp, raw)
	}
	return fromEpoch(n)
}

func parseTimestampString(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: timestamp", ErrMissingField)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

func fromEpoch(n float64) (time.Time, error) {
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, n)
	}
	if n >= epochMillisThreshold {
		if n > maxEpochMillis {
			return time.Time{}, fmt.Errorf("%w: %v out of range", ErrInvalidTimestamp, n)
		}
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	if n*1000 > maxEpochMillis {
		return time.Time{}, fmt.Errorf("%w: %v out of range", ErrInvalidTimestamp, n)
	}
	sec, frac := math.Modf(n)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}
