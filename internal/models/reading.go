package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReadingMetadata ties a reading to its owner. It is copied onto the
// reading at write time and never corrected afterwards.
type ReadingMetadata struct {
	Company  string `bson:"company" json:"company"`
	Location string `bson:"location" json:"location"`
	UUID     string `bson:"uuid" json:"uuid"`
}

// Reading is one timestamped sensor sample as stored in the Recording collection.
type Reading struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Metadata   ReadingMetadata    `bson:"metadata" json:"metadata"`
	SensorData map[string]float64 `bson:"sensor_data" json:"sensor_data"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// Sample is a raw device sample as uploaded in a batch. Humidity is in
// percentage points. Timestamp is kept raw so both strings and epoch
// numbers can be accepted.
type Sample struct {
	Temperature *float64        `json:"temperature"`
	Humidity    *float64        `json:"humidity"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// BatchRequest is the body of a batch upload.
type BatchRequest struct {
	UUID string   `json:"uuid"`
	Data []Sample `json:"data"`
}

// SingleReadingRequest is the body of the single-reading upload.
type SingleReadingRequest struct {
	Metadata   *ReadingMetadata   `json:"metadata"`
	Timestamp  json.RawMessage    `json:"timestamp"`
	SensorData map[string]float64 `json:"sensor_data"`
}

// ReadingQuery scopes a read. DeviceID is optional.
type ReadingQuery struct {
	Company  string
	DeviceID string
	Limit    int64
}

// IngestResult reports how many readings a batch wrote.
type IngestResult struct {
	Inserted int `json:"inserted"`
}
