package handlers

import (
	"net/http"

	"github.com/ecoverify/ecoverify-api/internal/auth"
	"github.com/ecoverify/ecoverify-api/internal/db"
	"github.com/ecoverify/ecoverify-api/internal/middleware"
	"github.com/ecoverify/ecoverify-api/internal/telemetry"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	AuthService         *auth.Service
	Accounts            db.AccountCollection
	Gateway             *telemetry.Gateway
	Predictor           Predictor
	AllowedOrigins      []string
	TrustedProxies      []string
	EnforceCompanyScope bool
	AuthRateLimit       int
}

// NewRouter creates the HTTP handler with all routes and middleware
func NewRouter(deps Dependencies) http.Handler {
	authHandler := NewAuthHandler(deps.AuthService, deps.Accounts)
	recordingHandler := NewRecordingHandler(deps.Gateway, deps.EnforceCompanyScope)
	deviceHandler := NewDeviceHandler(deps.Gateway, deps.Accounts, deps.EnforceCompanyScope)
	predictHandler := NewPredictHandler(deps.Predictor)

	authMiddleware := middleware.NewAuthMiddleware(deps.AuthService)
	rateLimit := middleware.NewRateLimitMiddleware(deps.TrustedProxies...).RateLimit(deps.AuthRateLimit, 60)

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(authMiddleware.Authenticate)

	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.Handle("/auth/signup", rateLimit(http.HandlerFunc(authHandler.Signup))).Methods(http.MethodPost)
	api.Handle("/auth/login", rateLimit(http.HandlerFunc(authHandler.Login))).Methods(http.MethodPost)
	api.HandleFunc("/auth/profile", authHandler.Profile).Methods(http.MethodGet)

	api.HandleFunc("/recording", recordingHandler.IngestReading).Methods(http.MethodPost)
	api.HandleFunc("/recording", recordingHandler.Latest).Methods(http.MethodGet)
	api.HandleFunc("/recording/batch", recordingHandler.IngestBatch).Methods(http.MethodPost)
	api.HandleFunc("/recording/history", recordingHandler.History).Methods(http.MethodGet)

	api.HandleFunc("/devices", deviceHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/devices", deviceHandler.Register).Methods(http.MethodPost)

	api.HandleFunc("/predict", predictHandler.Predict).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	recovery := gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(log.StandardLogger()),
		gorillahandlers.PrintRecoveryStack(true),
	)
	return recovery(c.Handler(r))
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
