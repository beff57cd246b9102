package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/auth"
	"github.com/ecoverify/ecoverify-api/internal/config"
	"github.com/ecoverify/ecoverify-api/internal/db"
	"github.com/ecoverify/ecoverify-api/internal/handlers"
	"github.com/ecoverify/ecoverify-api/internal/mqtt"
	"github.com/ecoverify/ecoverify-api/internal/prediction"
	"github.com/ecoverify/ecoverify-api/internal/telemetry"
	log "github.com/sirupsen/logrus"
)

const (
	predictionTimeout = 15 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := setupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).Fatal("Invalid logger configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	log.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}

	authService, err := auth.NewService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	accounts := &db.MongoAccountCollection{Collection: database.Collection(db.AccountsCollection)}
	readings := &db.MongoReadingCollection{Collection: database.Collection(db.ReadingsCollection)}
	gateway := telemetry.NewGateway(accounts, readings)

	if cfg.MQTT.BrokerURL != "" {
		subscriber := mqtt.NewSubscriber(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID, cfg.MQTT.Topic, gateway)
		if err := subscriber.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start MQTT subscriber")
		}
		defer subscriber.Stop()
		log.WithField("broker", cfg.MQTT.BrokerURL).Info("MQTT ingestion enabled")
	}

	router := handlers.NewRouter(handlers.Dependencies{
		AuthService:         authService,
		Accounts:            accounts,
		Gateway:             gateway,
		Predictor:           prediction.NewClient(cfg.PredictionURL, predictionTimeout),
		AllowedOrigins:      cfg.AllowedOrigins,
		TrustedProxies:      cfg.TrustedProxies,
		EnforceCompanyScope: cfg.EnforceCompanyScope,
		AuthRateLimit:       cfg.AuthRateLimit,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// setupLogger configures the standard logrus logger.
func setupLogger(level, format string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(parsed)
	log.SetOutput(os.Stdout)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return errors.New("unknown log format " + format)
	}
	return nil
}
