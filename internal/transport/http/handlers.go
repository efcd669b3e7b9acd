// @title Terrier API
// @version 1.0.0
// @description Hackathon identity and authorization service

// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name terrier_session

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/terrier-hq/terrier/internal/audit"
	"github.com/terrier-hq/terrier/internal/authz"
	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/observability/logger"
	"github.com/terrier-hq/terrier/internal/session"
	"github.com/terrier-hq/terrier/internal/tenant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// IdentityProvider runs the login handshake with the external provider
type IdentityProvider interface {
	AuthCodeURL(ctx context.Context, state, nonce string) (string, error)
	Exchange(ctx context.Context, code, nonce string) (*identity.Assertion, error)
	EndSessionURL(ctx context.Context, postLogoutRedirect string) (string, error)
}

// IdentitySyncer provisions local users for asserted identities
type IdentitySyncer interface {
	Sync(ctx context.Context, a *identity.Assertion) *identity.User
}

// RoleResolver computes effective roles
type RoleResolver interface {
	Resolve(ctx context.Context, slug string, a *identity.Assertion) (*authz.EffectiveRole, error)
	IsGlobalAdmin(email string) bool
}

// HackathonService manages hackathons and their members
type HackathonService interface {
	CreateHackathon(ctx context.Context, in tenant.CreateHackathonInput, createdBy string) (*tenant.Hackathon, error)
	GetBySlug(ctx context.Context, slug string) (*tenant.Hackathon, error)
	ListActive(ctx context.Context) ([]*tenant.Hackathon, error)
	AssignRole(ctx context.Context, hackathonID, userID, role, grantedBy string) (*tenant.RoleAssignment, error)
	RevokeRole(ctx context.Context, hackathonID, userID, revokedBy string) error
	ListMembers(ctx context.Context, hackathonID string) ([]*tenant.Member, error)
}

// Config holds HTTP-level settings
type Config struct {
	// AppURL is the frontend base URL; login and logout redirects stay under it.
	AppURL         string
	RequestTimeout time.Duration
	Cookies        CookieConfig
}

// CookieConfig holds session cookie configuration
type CookieConfig struct {
	SessionName   string
	StateName     string
	Domain        string
	Path          string
	Secure        bool
	HTTPOnly      bool
	SameSite      http.SameSite
	SessionMaxAge time.Duration
	StateMaxAge   time.Duration
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	syncer      IdentitySyncer
	users       identity.UserRepository
	resolver    RoleResolver
	hackathons  HackathonService
	idp         IdentityProvider
	sessions    *session.Manager
	auditLogger audit.Logger
	cfg         Config
}

// NewHandler creates a new HTTP handler
func NewHandler(
	syncer IdentitySyncer,
	users identity.UserRepository,
	resolver RoleResolver,
	hackathons HackathonService,
	idp IdentityProvider,
	sessions *session.Manager,
	auditLogger audit.Logger,
	cfg Config,
) *Handler {
	if cfg.Cookies.SessionName == "" {
		cfg.Cookies.SessionName = "terrier_session"
	}
	if cfg.Cookies.StateName == "" {
		cfg.Cookies.StateName = "terrier_login_state"
	}
	if cfg.Cookies.Path == "" {
		cfg.Cookies.Path = "/"
	}
	if cfg.Cookies.SameSite == 0 {
		cfg.Cookies.SameSite = http.SameSiteLaxMode
	}
	if cfg.Cookies.SessionMaxAge == 0 {
		cfg.Cookies.SessionMaxAge = sessions.Lifetime()
	}
	if cfg.Cookies.StateMaxAge == 0 {
		cfg.Cookies.StateMaxAge = sessions.StateLifetime()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	return &Handler{
		syncer:      syncer,
		users:       users,
		resolver:    resolver,
		hackathons:  hackathons,
		idp:         idp,
		sessions:    sessions,
		auditLogger: auditLogger,
		cfg:         cfg,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if rateLimiter != nil {
		r.Use(RateLimitMiddleware(rateLimiter))
	}
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.cfg.RequestTimeout))

	// Health check
	r.Get("/health", h.HealthCheck)

	// Everything else sees the session and runs identity sync first
	r.Group(func(r chi.Router) {
		r.Use(h.CSRFMiddleware)
		r.Use(h.SessionMiddleware)
		r.Use(h.SyncMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", h.Status)
			r.Get("/login", h.Login)
			r.Get("/callback", h.Callback)
			r.Get("/logout", h.Logout)
			r.Post("/logout", h.Logout)
		})
		r.Get("/me", h.Status)

		r.Route("/hackathons", func(r chi.Router) {
			r.Get("/", h.ListHackathons)
			r.With(h.RequireAuth, h.RequireGlobalAdmin).Post("/", h.CreateHackathon)

			r.Route("/{slug}", func(r chi.Router) {
				r.Use(h.RequireAuth)
				r.Use(h.ResolveHackathonRole)

				r.Get("/", h.GetHackathon)
				r.Get("/role", h.GetRole)
				r.Get("/permissions", h.GetPermissions)

				r.With(h.RequireCapability(authz.CapOrganizer)).Get("/members", h.ListMembers)
				r.Route("/members/{userID}", func(r chi.Router) {
					r.Use(h.RequireCapability(authz.CapAdmin))
					r.Put("/", h.AssignMember)
					r.Delete("/", h.RevokeMember)
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "terrier",
	})
}

// respondAuthzError maps a resolution failure to its status code.
// Internal details never reach the client.
func respondAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, authz.ErrTenantNotFound):
		respondError(w, http.StatusNotFound, "hackathon not found")
	case errors.Is(err, authz.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	default:
		slog.ErrorContext(r.Context(), "authorization failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
