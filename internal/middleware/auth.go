package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/auth"
	"github.com/ecoverify/ecoverify-api/internal/models"
	log "github.com/sirupsen/logrus"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// AuthMiddleware provides session token authentication
type AuthMiddleware struct {
	authService *auth.Service
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate validates the session token and adds the claims to the
// request context. Requests without a valid token never reach next.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRoute(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.authService.ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			unauthorized(w, "Unauthorized")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Debug("Rejected session token")
			unauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext extracts session claims from request context
func GetClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.Claims)
	return claims, ok
}

type publicRoute struct {
	method string
	path   string
}

// Routes reachable without a session. Matched on exact path.
var publicRoutes = []publicRoute{
	{http.MethodPost, "/api/auth/signup"},
	{http.MethodPost, "/api/auth/login"},
	{http.MethodPost, "/api/recording"},
	{http.MethodGet, "/health"},
	{http.MethodGet, "/metrics"},
}

func isPublicRoute(method, path string) bool {
	if method == http.MethodOptions {
		return true
	}
	path = strings.TrimSuffix(path, "/")
	for _, route := range publicRoutes {
		if route.method == method && route.path == path {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	requests       map[string][]int64 // IP -> timestamps
	trustedProxies map[string]bool
	lastSweep      int64
	mu             sync.Mutex
}

// NewRateLimitMiddleware creates a new rate limiting middleware. Forwarding
// headers are honoured only when the peer is one of trustedProxies.
func NewRateLimitMiddleware(trustedProxies ...string) *RateLimitMiddleware {
	trusted := make(map[string]bool, len(trustedProxies))
	for _, ip := range trustedProxies {
		if ip = strings.TrimSpace(ip); ip != "" {
			trusted[ip] = true
		}
	}
	return &RateLimitMiddleware{
		requests:       make(map[string][]int64),
		trustedProxies: trusted,
	}
}

// RateLimit applies rate limiting based on IP address
func (m *RateLimitMiddleware) RateLimit(maxRequests int, windowSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := m.clientIP(r)
			now := time.Now().Unix()
			windowStart := now - int64(windowSeconds)

			m.mu.Lock()
			if now-m.lastSweep >= int64(windowSeconds) {
				m.sweep(windowStart)
				m.lastSweep = now
			}
			valid := m.requests[clientIP][:0]
			for _, ts := range m.requests[clientIP] {
				if ts > windowStart {
					valid = append(valid, ts)
				}
			}
			if len(valid) >= maxRequests {
				m.requests[clientIP] = valid
				m.mu.Unlock()
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			m.requests[clientIP] = append(valid, now)
			m.mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// sweep drops clients with no request inside the window. Caller holds mu.
func (m *RateLimitMiddleware) sweep(windowStart int64) {
	for ip, stamps := range m.requests {
		if len(stamps) == 0 || stamps[len(stamps)-1] <= windowStart {
			delete(m.requests, ip)
		}
	}
}

func (m *RateLimitMiddleware) trackedClients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// clientIP returns the peer address, or the forwarded client address when
// the peer is a trusted proxy.
func (m *RateLimitMiddleware) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !m.trustedProxies[peer] {
		return peer
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	return peer
}
