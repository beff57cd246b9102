package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ecoverify/ecoverify-api/internal/db"
	"github.com/ecoverify/ecoverify-api/internal/middleware"
	"github.com/ecoverify/ecoverify-api/internal/models"
	"github.com/ecoverify/ecoverify-api/internal/telemetry"
	log "github.com/sirupsen/logrus"
)

// DeviceHandler serves the company device directory
type DeviceHandler struct {
	gateway      *telemetry.Gateway
	accounts     db.AccountCollection
	enforceScope bool
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(gateway *telemetry.Gateway, accounts db.AccountCollection, enforceScope bool) *DeviceHandler {
	return &DeviceHandler{gateway: gateway, accounts: accounts, enforceScope: enforceScope}
}

type devicesResponse struct {
	Devices []models.Device `json:"devices"`
}

// List returns the devices registered to a company
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	company, ok := requireCompany(w, r, h.enforceScope)
	if !ok {
		return
	}

	devices, err := h.gateway.Devices(r.Context(), company)
	if errors.Is(err, db.ErrNotFound) {
		respondNotFound(w, "No devices found")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, devicesResponse{Devices: devices})
}

// Register adds a device to the session company's directory. Device IDs
// are kept unique across companies so batch lookup is unambiguous.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var device models.Device
	if err := decodeJSON(r, &device); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	device.DeviceID = strings.TrimSpace(device.DeviceID)
	device.Location = strings.TrimSpace(device.Location)
	if device.DeviceID == "" || device.Location == "" {
		respondError(w, http.StatusBadRequest, "deviceID and location are required")
		return
	}

	_, err := h.accounts.FindAccountByDeviceID(r.Context(), device.DeviceID)
	if err == nil {
		respondError(w, http.StatusBadRequest, "Device already registered")
		return
	}
	if !errors.Is(err, db.ErrNotFound) {
		respondInternal(w, r, err)
		return
	}

	err = h.accounts.AddDevice(r.Context(), claims.Company, device)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusBadRequest, "Device already registered")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	log.WithFields(log.Fields{"company": claims.Company, "device_id": device.DeviceID}).Info("Registered device")
	respondJSON(w, http.StatusCreated, device)
}
