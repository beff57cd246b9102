package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/auth"
	"github.com/ecoverify/ecoverify-api/internal/db"
	"github.com/ecoverify/ecoverify-api/internal/middleware"
	"github.com/ecoverify/ecoverify-api/internal/models"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler handles account creation and sessions
type AuthHandler struct {
	authService *auth.Service
	accounts    db.AccountCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, accounts db.AccountCollection) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		accounts:    accounts,
	}
}

// Signup creates a company account
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.CompanyName = strings.TrimSpace(req.CompanyName)

	if req.Email == "" || req.Password == "" || req.CompanyName == "" {
		respondError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ValidateCompanyName(req.CompanyName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.accounts.FindAccountByEmail(r.Context(), req.Email)
	if err == nil {
		respondError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if !errors.Is(err, db.ErrNotFound) {
		respondInternal(w, r, err)
		return
	}

	_, err = h.accounts.FindAccountByCompany(r.Context(), req.CompanyName)
	if err == nil {
		respondError(w, http.StatusBadRequest, "Company already registered")
		return
	}
	if !errors.Is(err, db.ErrNotFound) {
		respondInternal(w, r, err)
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	account := models.Account{
		ID:           primitive.NewObjectID(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		CompanyName:  req.CompanyName,
		Devices:      []models.Device{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.accounts.InsertAccount(r.Context(), account); err != nil {
		if errors.Is(err, db.ErrDuplicateCompany) {
			respondError(w, http.StatusBadRequest, "Company already registered")
			return
		}
		if errors.Is(err, db.ErrDuplicate) {
			respondError(w, http.StatusBadRequest, "User already exists")
			return
		}
		respondInternal(w, r, err)
		return
	}

	log.WithFields(log.Fields{"company": account.CompanyName, "account_id": account.ID.Hex()}).Info("Created account")
	respondJSON(w, http.StatusCreated, models.MessageResponse{Message: "User created successfully"})
}

// Login verifies credentials and issues a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Missing email or password")
		return
	}

	account, err := h.accounts.FindAccountByEmail(r.Context(), strings.TrimSpace(req.Email))
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if !h.authService.CheckPassword(req.Password, account.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(account)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token:   token,
		Account: *account,
	})
}

// Profile returns the session's account
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	account, err := h.accounts.FindAccountByID(r.Context(), claims.AccountID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}
