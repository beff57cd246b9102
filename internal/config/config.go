package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port                string
	MongoURI            string
	MongoDatabase       string
	SessionSecret       string
	SessionTTL          time.Duration
	PredictionURL       string
	AllowedOrigins      []string
	TrustedProxies      []string
	EnforceCompanyScope bool
	AuthRateLimit       int
	LogLevel            string
	LogFormat           string
	MQTT                MQTTConfig
}

// MQTTConfig holds the optional device broker settings. An empty
// BrokerURL disables MQTT ingestion.
type MQTTConfig struct {
	BrokerURL string
	Topic     string
	ClientID  string
}

// Load reads configuration from the environment, after loading a .env
// file if one exists. Missing required variables are reported together.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      required("MONGODB_URI"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "EcoVerify"),
		SessionSecret: required("SESSION_SECRET"),
		PredictionURL: strings.TrimRight(required("PREDICTION_SERVICE_URL"), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		MQTT: MQTTConfig{
			BrokerURL: os.Getenv("MQTT_BROKER_URL"),
			Topic:     getEnv("MQTT_TOPIC", "ecoverify/devices/+/readings"),
			ClientID:  getEnv("MQTT_CLIENT_ID", "ecoverify-gateway"),
		},
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL %q", os.Getenv("SESSION_TTL"))
	}
	cfg.SessionTTL = ttl

	limit, err := strconv.Atoi(getEnv("AUTH_RATE_LIMIT", "10"))
	if err != nil || limit < 1 {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT %q", os.Getenv("AUTH_RATE_LIMIT"))
	}
	cfg.AuthRateLimit = limit

	cfg.EnforceCompanyScope, err = strconv.ParseBool(getEnv("ENFORCE_COMPANY_SCOPE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENFORCE_COMPANY_SCOPE: %w", err)
	}

	cfg.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))

	cfg.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
