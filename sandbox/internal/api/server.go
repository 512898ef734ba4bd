// Package api provides the HTTP API and middleware for the sandbox payments
// backend.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/sandbox/internal/auth"
	"github.com/affiliateplus/storefront/sandbox/internal/config"
	"github.com/affiliateplus/storefront/sandbox/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	store         store.Store
	authProvider  auth.Provider
	loginProvider auth.LoginProvider
	payments      config.PaymentsConfig
	logger        *slog.Logger
	metrics       *metrics
	mux           *chi.Mux
	startTime     time.Time
	maxBodyBytes  int64
	jwtExpiry     time.Duration
	loginRL       *rateLimiter
	payRL         *rateLimiter
	rl            *rateLimiter
}

// NewServer creates a new API server. lp may be nil when the auth provider
// has no password login.
func NewServer(s store.Store, ap auth.Provider, lp auth.LoginProvider, cfg *config.Config, logger *slog.Logger) *Server {
	srv := &Server{
		store:         s,
		authProvider:  ap,
		loginProvider: lp,
		payments:      cfg.Payments,
		logger:        logger.With("component", "api"),
		metrics:       newMetrics(),
		startTime:     time.Now(),
		maxBodyBytes:  cfg.Server.MaxBodyBytes,
		jwtExpiry:     cfg.Auth.JWTExpiry.Duration,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.RealIP)
	mux.Use(securityHeadersMiddleware)
	mux.Use(makeCORSMiddleware(cfg.Server.AllowedOrigins))

	// Health and metrics (unauthenticated)
	mux.Get("/healthz", srv.handleHealthz)
	mux.Get("/readyz", srv.handleReadyz)
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(srv.metrics.registry, promhttp.HandlerOpts{}))

	// Login route only registered when the provider supports passwords.
	if lp != nil {
		srv.loginRL = newRateLimiter(5, 10)
		mux.With(ipRateLimitMiddleware(srv.loginRL, "Too many login attempts")).Post(protocol.RouteLogin, srv.handleLogin)
	}

	// The simulated payment provider. Like a real provider it pays by order
	// or subscription id and knows nothing of the merchant's sessions.
	srv.payRL = newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	mux.Get(protocol.RouteSandboxSDK, srv.handleCheckoutScript)
	mux.With(ipRateLimitMiddleware(srv.payRL, "Too many payment attempts")).Post(protocol.RouteSandboxPay, srv.handleSandboxPay)

	// Authenticated API routes
	srv.rl = newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	mux.Group(func(r chi.Router) {
		r.Use(srv.authMiddleware)
		r.Use(rateLimitMiddleware(srv.rl))

		r.Get(protocol.RouteMe, srv.handleGetMe)
		r.Post(protocol.RouteCreateOrder, srv.handleCreateOrder)
		r.Post(protocol.RouteVerifyOrder, srv.handleVerifyOrder)
		r.Post(protocol.RouteCreateSubscription, srv.handleCreateSubscription)
		r.Post(protocol.RouteVerifySubscription, srv.handleVerifySubscription)
	})

	srv.mux = mux
	return srv
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartBackgroundTasks starts periodic cleanup tasks for rate limiters.
func (s *Server) StartBackgroundTasks(ctx context.Context) {
	for _, rl := range []*rateLimiter{s.loginRL, s.payRL, s.rl} {
		if rl != nil {
			rl.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)
		}
	}
}

// --- Auth handlers ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req protocol.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	token, user, err := s.loginProvider.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Info("login failed", "email", req.Email, "error", err)
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.logger.Info("login", "user_id", user.ID, "role", user.Role)

	http.SetCookie(w, &http.Cookie{
		Name:     protocol.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.jwtExpiry),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, protocol.LoginResponse{Token: token, User: toProtocolUser(user)})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, protocol.UserResponse{User: toProtocolUser(user)})
}

// currentUser loads the authenticated user, writing the error response when
// that fails.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	identity := getIdentityFromContext(r.Context())
	user, err := s.store.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		s.logger.Error("load user", "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "User not found")
		return nil, false
	}
	return user, true
}

// --- Health handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- helpers ---

// decode reads a JSON body bounded by the configured limit.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if s.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func toProtocolUser(u *store.User) protocol.User {
	pu := protocol.User{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		Credits: u.Credits,
	}
	if sub := u.Subscription; sub != nil {
		ps := &protocol.Subscription{ID: sub.ID, PlanName: sub.PlanName, Status: sub.Status}
		if sub.ActivatedAt != nil {
			ps.StartedAt = *sub.ActivatedAt
		}
		pu.Subscription = ps
	}
	return pu
}

// newID returns a provider-style id such as "order_4f1c2a9b8e7d6c".
func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:14]
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the backend's error body, which clients surface verbatim.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, protocol.ErrorResponse{Message: message})
}
