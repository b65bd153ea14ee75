// Package gateway is the local HTTP surface of the client: the login and
// session endpoints, and the role-gated route groups protected by the two
// cooperating guards.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/shopgate/internal/resolver"
	"github.com/me/shopgate/internal/session"
	"github.com/me/shopgate/pkg/model"
)

// SessionStore is the slice of the session store the gateway consumes.
type SessionStore interface {
	Current() (model.Session, bool)
	Logout(ctx context.Context)
	UpdateIdentity(ctx context.Context, fields map[string]any) (model.Identity, error)
	IsSessionPresent() bool
	PersistedRole() model.Role
}

// Gateway serves the local UI API and enforces the route guards.
type Gateway struct {
	router    chi.Router
	logger    *slog.Logger
	store     SessionStore
	entries   session.EntryStore
	resolver  *resolver.Resolver
	startTime time.Time
}

// New creates a Gateway with all routes registered.
func New(st SessionStore, entries session.EntryStore, res *resolver.Resolver, logger *slog.Logger) *Gateway {
	g := &Gateway{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "gateway"),
		store:     st,
		entries:   entries,
		resolver:  res,
		startTime: time.Now(),
	}
	g.routes()
	return g
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this gateway.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) routes() {
	r := g.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(g.logger))

	// Session API
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", g.handleHealth)
		r.Get("/session", g.handleSession)
		r.Post("/login", g.handleLogin)
		r.Post("/login/choose", g.handleChoose)
		r.Post("/login/cancel", g.handleCancel)
		r.Post("/logout", g.handleLogout)
		r.Put("/profile", g.handleUpdateProfile)
	})

	// Unauthenticated landing views.
	r.Get("/login", g.handleLoginView)
	r.Get("/home", g.handleHome)

	// Role-gated route groups. The request-level guard runs as middleware
	// before anything under the group is served; the client guard wraps
	// each view and re-checks at render time.
	r.Route("/merchant", func(r chi.Router) {
		r.Use(g.RequireRole(model.RoleMerchant))
		r.Get("/home", g.Guarded(model.RoleMerchant, g.handleMerchantHome))
	})
	r.Route("/account", func(r chi.Router) {
		r.Use(g.RequireRole(model.RoleCustomer))
		r.Get("/profile", g.Guarded(model.RoleCustomer, g.handleAccountProfile))
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(g.RequireRole(model.RoleCustomer))
		r.Get("/home", g.GuardedAdmin(g.handleAdminHome))
	})
}
