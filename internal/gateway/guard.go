package gateway

import (
	"net/http"

	"github.com/me/shopgate/internal/session"
	"github.com/me/shopgate/pkg/model"
)

// loginRoute is where both guards send unauthenticated or wrong-role
// traffic.
const loginRoute = "/login"

// The two guards below are deliberate defense-in-depth: the request-level
// guard gates a protected route before any of it is served, the client
// guard re-checks at render time. They must reach the same accept/reject
// decision for the same persisted state; keep them behaviorally identical
// when the session contract changes.

// RequireRole is the request-level guard: chi middleware that runs before
// a protected route is served. It reads only the guard-accessible entry
// store (token and role), never the structured store and never the
// network, and redirects instead of serving when the token is absent or
// the role does not match.
func (g *Gateway) RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := g.entries.Get(session.EntryToken)
			if token == "" || g.entries.Get(session.EntryRole) != string(role) {
				http.Redirect(w, r, loginRoute, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guarded is the client guard: it wraps a protected view and re-evaluates
// the persisted session on every request, so a logout elsewhere in the app
// takes effect immediately rather than only on the next navigation.
func (g *Gateway) Guarded(role model.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.store.IsSessionPresent() || g.store.PersistedRole() != role {
			http.Redirect(w, r, loginRoute, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// GuardedAdmin gates the administrative views: a customer session that
// carries the admin sub-role. Merchants and ordinary customers are
// redirected.
func (g *Gateway) GuardedAdmin(next http.HandlerFunc) http.HandlerFunc {
	return g.Guarded(model.RoleCustomer, func(w http.ResponseWriter, r *http.Request) {
		sess, ok := g.store.Current()
		if !ok || !sess.IsAdmin() {
			http.Redirect(w, r, loginRoute, http.StatusSeeOther)
			return
		}
		next(w, r)
	})
}
