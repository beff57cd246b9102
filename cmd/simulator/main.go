package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Sample is one simulated device reading, in the shape the batch endpoint accepts.
type Sample struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// Batch is the upload body for one device.
type Batch struct {
	UUID string   `json:"uuid"`
	Data []Sample `json:"data"`
}

// DeviceState is the random-walk state of one simulated device.
type DeviceState struct {
	ID          string
	Temperature float64
	Humidity    float64
	pending     []Sample
}

// Publisher delivers a batch for one device.
type Publisher interface {
	Publish(batch Batch) error
}

// Settings holds the simulator configuration read from the environment.
type Settings struct {
	Devices    []string
	APIURL     string
	AuthToken  string
	Interval   time.Duration
	BatchSize  int
	MQTTBroker string
}

func loadSettings() Settings {
	s := Settings{
		Devices:    []string{"sim-device-1", "sim-device-2"},
		APIURL:     "http://localhost:8080/api",
		AuthToken:  os.Getenv("SIM_AUTH_TOKEN"),
		Interval:   2 * time.Second,
		BatchSize:  5,
		MQTTBroker: os.Getenv("SIM_MQTT_BROKER"),
	}
	if v := os.Getenv("SIM_DEVICES"); v != "" {
		var ids []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			s.Devices = ids
		}
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		s.APIURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			s.Interval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SIM_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			s.BatchSize = n
		}
	}
	return s
}

func newDevice(id string, rng *rand.Rand) *DeviceState {
	return &DeviceState{
		ID:          id,
		Temperature: 18 + rng.Float64()*6,
		Humidity:    40 + rng.Float64()*20,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// step advances the random walk and queues a sample stamped at now.
func (d *DeviceState) step(rng *rand.Rand, now time.Time) {
	d.Temperature = clamp(d.Temperature+(rng.Float64()*2-1)*0.4, -10, 45)
	d.Humidity = clamp(d.Humidity+(rng.Float64()*2-1)*1.5, 5, 95)
	d.pending = append(d.pending, Sample{
		Temperature: round2(d.Temperature),
		Humidity:    round2(d.Humidity),
		Timestamp:   now.UTC().Format(time.RFC3339),
	})
}

// flush hands the queued samples to the publisher once batchSize is
// reached. Samples are kept for the next attempt if publishing fails.
func (d *DeviceState) flush(p Publisher, batchSize int) (bool, error) {
	if len(d.pending) < batchSize {
		return false, nil
	}
	if err := p.Publish(Batch{UUID: d.ID, Data: d.pending}); err != nil {
		return false, err
	}
	d.pending = nil
	return true, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// HTTPPublisher posts batches to the API.
type HTTPPublisher struct {
	client *resty.Client
}

// NewHTTPPublisher creates a publisher for the API at baseURL.
func NewHTTPPublisher(baseURL, token string) *HTTPPublisher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &HTTPPublisher{client: client}
}

func (p *HTTPPublisher) Publish(batch Batch) error {
	resp, err := p.client.R().SetBody(batch).Post("/recording/batch")
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post batch: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	log.WithFields(log.Fields{"uuid": batch.UUID, "samples": len(batch.Data), "status": resp.Status()}).Info("Sent batch")
	return nil
}

// MQTTPublisher publishes batches on the device readings topic.
type MQTTPublisher struct {
	client paho.Client
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(broker string) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("ecoverify-sim-%d", time.Now().UnixNano())).
		SetAutoReconnect(true)
	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &MQTTPublisher{client: client}, nil
}

func (p *MQTTPublisher) Publish(batch Batch) error {
	payload, err := json.Marshal(map[string][]Sample{"data": batch.Data})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	token := p.client.Publish(deviceTopic(batch.UUID), 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	log.WithFields(log.Fields{"uuid": batch.UUID, "samples": len(batch.Data)}).Info("Published batch")
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

func deviceTopic(deviceID string) string {
	return "ecoverify/devices/" + deviceID + "/readings"
}

// run ticks every device until ctx is done.
func run(ctx context.Context, devices []*DeviceState, p Publisher, s Settings, rng *rand.Rand) {
	tick := time.NewTicker(s.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			for _, d := range devices {
				d.step(rng, now)
				if _, err := d.flush(p, s.BatchSize); err != nil {
					log.WithError(err).WithField("uuid", d.ID).Error("Failed to deliver batch")
				}
			}
		}
	}
}

func main() {
	_ = godotenv.Load()
	s := loadSettings()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var publisher Publisher
	if s.MQTTBroker != "" {
		mqttPublisher, err := NewMQTTPublisher(s.MQTTBroker)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MQTT broker")
		}
		defer mqttPublisher.Close()
		publisher = mqttPublisher
	} else {
		if s.AuthToken == "" {
			log.Warn("SIM_AUTH_TOKEN is empty; batch uploads will be rejected")
		}
		publisher = NewHTTPPublisher(s.APIURL, s.AuthToken)
	}

	devices := make([]*DeviceState, 0, len(s.Devices))
	for _, id := range s.Devices {
		devices = append(devices, newDevice(id, rng))
	}

	log.WithFields(log.Fields{
		"devices":    len(devices),
		"api_url":    s.APIURL,
		"mqtt":       s.MQTTBroker != "",
		"interval":   s.Interval,
		"batch_size": s.BatchSize,
	}).Info("Starting device simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	run(ctx, devices, publisher, s, rng)
	log.Info("Simulation stopped")
}
