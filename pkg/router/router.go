// Package router assembles the coach-admin HTTP routes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	auditapi "github.com/macrominded/coach-admin/pkg/audit/api"
	"github.com/macrominded/coach-admin/pkg/identity"
	impersonateapi "github.com/macrominded/coach-admin/pkg/impersonate/api"
	"github.com/macrominded/coach-admin/pkg/ratelimit"
	"github.com/macrominded/coach-admin/pkg/session"
)

// Config holds the dependencies needed to set up routes
type Config struct {
	ImpersonateHandle *impersonateapi.Handler
	AuditHandle       *auditapi.Handler
	Channel           *session.Channel

	// JWT authentication for the admin bearer path
	Auth *jwtauth.JWTAuth

	// RateLimit throttles the bearer-less exchange endpoint; nil disables it
	RateLimit *ratelimit.Middleware
}

// New builds the service router.
//
// Route groups:
//   - POST /impersonate and GET /audit/* require a verified admin bearer;
//     the admin check always runs against the token identity, never the
//     impersonation cookie.
//   - /impersonate/exchange, /status, /exit ride on the browser redirect
//     and the cookie alone.
//   - Everything under the session resolver renders the effective viewer.
func New(cfg Config) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Every render resolves the cookie fresh; the exit flag is honored here
	r.Use(cfg.Channel.Resolver)

	r.Route("/impersonate", func(r chi.Router) {
		// Browser-facing: no bearer required, the one-shot token or the
		// cookie is the credential. Exchange is the token-guessing surface,
		// so it gets the per-client limiter.
		if cfg.RateLimit != nil {
			r.With(cfg.RateLimit.Handler).Get("/exchange", cfg.ImpersonateHandle.Exchange)
		} else {
			r.Get("/exchange", cfg.ImpersonateHandle.Exchange)
		}
		r.Get("/status", cfg.ImpersonateHandle.Status)
		r.Post("/exit", cfg.ImpersonateHandle.Exit)

		// Admin-facing: verified admin bearer required
		r.Group(func(r chi.Router) {
			r.Use(identity.Verifier(cfg.Auth))
			r.Use(identity.Middleware)
			r.Use(identity.RequireAuthenticated)
			r.Use(identity.RequireAdmin)
			r.Post("/", cfg.ImpersonateHandle.Start)
		})
	})

	r.Route("/audit", func(r chi.Router) {
		r.Use(identity.Verifier(cfg.Auth))
		r.Use(identity.Middleware)
		r.Use(identity.RequireAuthenticated)
		r.Use(identity.RequireAdmin)
		cfg.AuditHandle.RegisterRoutes(r)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
