// Package mqtt feeds device batches published on a broker into the
// telemetry gateway.
package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/models"
	"github.com/ecoverify/ecoverify-api/internal/telemetry"
	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTopic   = "ecoverify/devices/+/readings"
	messageTimeout = 10 * time.Second
	connectTimeout = 15 * time.Second
)

var (
	ErrNoDeviceInTopic = errors.New("topic has no device segment")
	ErrInvalidPayload  = errors.New("invalid payload")
)

// BatchIngester is the part of the gateway the subscriber drives.
type BatchIngester interface {
	IngestBatch(ctx context.Context, uuid string, samples []models.Sample, source string) (models.IngestResult, error)
}

// Subscriber consumes reading batches from a broker topic.
type Subscriber struct {
	client   paho.Client
	topic    string
	ingester BatchIngester
}

// NewSubscriber creates a subscriber for the broker. Call Start to connect.
func NewSubscriber(brokerURL, clientID, topic string, ingester BatchIngester) *Subscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	s := &Subscriber{topic: topic, ingester: ingester}

	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(s.subscribe).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	s.client = paho.NewClient(opts)
	return s
}

// Start connects to the broker. Subscriptions are (re)established on every connect.
func (s *Subscriber) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect: timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop disconnects, giving in-flight work a short grace period.
func (s *Subscriber) Stop() {
	s.client.Disconnect(250)
}

func (s *Subscriber) subscribe(client paho.Client) {
	token := client.Subscribe(s.topic, 1, func(_ paho.Client, msg paho.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).WithField("topic", s.topic).Error("MQTT subscribe failed")
		return
	}
	log.WithField("topic", s.topic).Info("Subscribed to device readings")
}

// handleMessage ingests one published batch. Failures are logged and the
// message is not retried.
func (s *Subscriber) handleMessage(topic string, payload []byte) {
	entry := log.WithField("topic", topic)

	uuid, err := DeviceFromTopic(topic)
	if err != nil {
		entry.WithError(err).Warn("Ignoring message")
		return
	}
	samples, err := DecodeSamples(payload)
	if err != nil {
		entry.WithError(err).Warn("Ignoring message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	result, err := s.ingester.IngestBatch(ctx, uuid, samples, telemetry.SourceMQTT)
	if err != nil {
		entry.WithError(err).WithField("uuid", uuid).Error("Failed to ingest MQTT batch")
		return
	}
	entry.WithFields(log.Fields{"uuid": uuid, "inserted": result.Inserted}).Debug("Ingested MQTT batch")
}

// DeviceFromTopic returns the segment following "devices" in topic.
func DeviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	for i, part := range parts {
		if part == "devices" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoDeviceInTopic, topic)
}

// DecodeSamples accepts either a bare JSON array of samples or an object
// with a "data" array.
func DecodeSamples(payload []byte) ([]models.Sample, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	var samples []models.Sample
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &samples); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return samples, nil
	}

	var envelope struct {
		Data []models.Sample `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	return envelope.Data, nil
}
