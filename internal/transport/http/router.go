// Package httptransport assembles the HTTP API.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditHandler "leaddesk/internal/audit/handler"
	authHandler "leaddesk/internal/auth/handler"
	"leaddesk/internal/authz"
	clientHandler "leaddesk/internal/client/handler"
	identityHandler "leaddesk/internal/identity/handler"
	leadHandler "leaddesk/internal/lead/handler"
	"leaddesk/internal/platform/metrics"
	"leaddesk/internal/platform/middleware"
	"leaddesk/internal/transport/http/shared"
	"leaddesk/pkg/domain"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router wires together.
type Deps struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
	Gate       *authz.Gate
	Revocation middleware.TokenRevocationChecker

	Auth     *authHandler.Handler
	Users    *identityHandler.Handler
	Clients  *clientHandler.Handler
	Leads    *leadHandler.Handler
	Audit    *auditHandler.Handler
	Checkers []HealthChecker
}

// New builds the chi router with the full middleware chain and role gating
// per route group.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", handleHealth(d.Checkers))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		d.Auth.RegisterPublic(r)
	})

	staff := middleware.RequireRole(d.Gate, d.Revocation, d.Metrics, d.Logger, domain.AnyStaff)
	admin := middleware.RequireRole(d.Gate, d.Revocation, d.Metrics, d.Logger, domain.AdminOnly)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(staff)
		d.Auth.RegisterAuthenticated(r)
		d.Clients.Register(r)
		d.Leads.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(admin)
		d.Users.Register(r)
		d.Audit.Register(r)
	})

	return r
}

func handleHealth(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, c := range checkers {
			if c == nil {
				continue
			}
			if err := c.Health(ctx); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
