// Package http wires the chi router: public enrollment and login routes,
// session-guarded exam routes, and admin routes behind the role gate.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facegate/internal/audit"
	"facegate/internal/auth"
	"facegate/internal/identity"
	"facegate/internal/monitor"
	"facegate/internal/schedule"
	middlewareAdmin "facegate/pkg/platform/middleware/admin"
	middlewareAuth "facegate/pkg/platform/middleware/auth"
	"facegate/pkg/platform/middleware/metadata"
)

// Deps collects everything the router needs. All fields are required
// except Health, which may be nil.
type Deps struct {
	Identity   *identity.Service
	Auth       *auth.Service
	Monitor    *monitor.Service
	Schedule   schedule.Store
	Audit      *audit.Recorder
	Validator  middlewareAuth.TokenValidator
	Revocation middlewareAuth.RevocationChecker
	Health     func() error
	Logger     *slog.Logger
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.Capture)

	authHandler := &authHandler{identity: d.Identity, auth: d.Auth, logger: d.Logger}
	monitorHandler := &monitorHandler{svc: d.Monitor, identity: d.Identity}
	adminHandler := &adminHandler{
		identity: d.Identity,
		schedule: d.Schedule,
		audit:    d.Audit,
		logger:   d.Logger,
	}

	r.Post("/register", authHandler.register)
	r.Post("/auth/face", authHandler.authenticateFace)
	r.Post("/auth/mfa", authHandler.verifyMFA)

	r.Get("/healthz", healthz(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middlewareAuth.RequireSession(d.Validator, d.Revocation, d.Logger))

		r.Post("/auth/logout", authHandler.logout)
		r.Post("/monitor", monitorHandler.monitor)
		r.Post("/exams/verified", monitorHandler.markExamVerified)

		r.Group(func(r chi.Router) {
			r.Use(middlewareAdmin.RequireAdmin(d.Logger))

			r.Get("/admin/overview", adminHandler.overview)
			r.Get("/admin/audit", adminHandler.auditTrail)
			r.Post("/admin/users/{id}/mfa", adminHandler.toggleMFA)
			r.Put("/admin/users/{id}/subjects", adminHandler.setExamSubjects)
			r.Delete("/admin/users/{id}", adminHandler.deleteUser)
			r.Put("/admin/schedule", adminHandler.setSchedule)
			r.Delete("/admin/schedule/{subject}", adminHandler.deleteSchedule)
		})
	})

	return r
}

func healthz(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
