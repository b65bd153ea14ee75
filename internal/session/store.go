// Package session owns the current session value for the lifetime of the
// running client. It keeps three persistence locations in step: the
// in-memory value (source of truth while alive), the durable structured
// store (survives restarts), and the guard-accessible entry store (token
// and role only, readable entry-wise by the route guards).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/me/shopgate/internal/identity"
	"github.com/me/shopgate/internal/shopapi"
	"github.com/me/shopgate/internal/store"
	"github.com/me/shopgate/pkg/model"
)

// API is the slice of the upstream client the store needs: one login
// endpoint and one profile endpoint per namespace.
type API interface {
	LoginCustomer(ctx context.Context, creds shopapi.Credentials) (*shopapi.LoginReply, error)
	LoginMerchant(ctx context.Context, creds shopapi.Credentials) (*shopapi.LoginReply, error)
	UpdateCustomerProfile(ctx context.Context, fields map[string]any) (map[string]any, error)
	UpdateMerchantProfile(ctx context.Context, fields map[string]any) (map[string]any, error)
}

// Store is the single writer for all session persistence locations.
// No other component writes to them directly.
type Store struct {
	mu      sync.Mutex
	cur     *model.Session
	durable store.Store
	entries EntryStore
	api     API
	logger  *slog.Logger
}

// New creates a session store over the given persistence locations.
// Call SetAPI before Login or UpdateIdentity, and Restore before first use
// so a session persisted by a previous run is picked up.
func New(durable store.Store, entries EntryStore, logger *slog.Logger) *Store {
	return &Store{
		durable: durable,
		entries: entries,
		logger:  logger.With("component", "session"),
	}
}

// SetAPI binds the upstream client. Split from New because the client's
// credential-attachment hook is this store's Token method.
func (s *Store) SetAPI(api API) {
	s.api = api
}

// Token is the credential-attachment hook handed to the upstream client:
// it returns the current bearer token, or "" while logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.Token
}

// Current returns a snapshot of the in-memory session. Side-effect free.
func (s *Store) Current() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return model.Session{}, false
	}
	return s.cur.Snapshot(), true
}

// Login authenticates against the endpoint bound to role. On success the
// session is written to all three persistence locations in immediate
// sequence; if any write fails the others are rolled back and the login
// fails. On endpoint failure no location is mutated and the typed upstream
// error is returned (callers at the UI boundary reduce it to a generic
// message).
func (s *Store) Login(ctx context.Context, creds shopapi.Credentials, role model.Role) (model.Session, error) {
	if !role.Valid() {
		return model.Session{}, fmt.Errorf("unknown role %q", role)
	}
	if s.api == nil {
		return model.Session{}, fmt.Errorf("session store: no upstream client bound")
	}

	var reply *shopapi.LoginReply
	var err error
	if role == model.RoleMerchant {
		reply, err = s.api.LoginMerchant(ctx, creds)
	} else {
		reply, err = s.api.LoginCustomer(ctx, creds)
	}
	if err != nil {
		// Internal reason is logged, never displayed: surfacing which
		// namespace rejected the attempt would leak membership.
		s.logger.Debug("login rejected", "role", role, "error", err)
		return model.Session{}, err
	}

	ident := identity.Merge(identity.Record(reply.Raw), identity.Extract(reply.Raw))
	sess := model.Session{Token: reply.Token, Role: role, Identity: ident}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, &sess); err != nil {
		// The rollback wiped the stored locations; drop the in-memory
		// value too so every location agrees on "logged out".
		s.cur = nil
		return model.Session{}, fmt.Errorf("persist session: %w", err)
	}
	s.cur = &sess

	s.logger.Info("session established", "role", role, "uid", sess.Identifier())
	return sess.Snapshot(), nil
}

// persist fans one session out to the durable store and the guard entries.
// Writes happen in immediate sequence; a failure rolls back what was
// already written so no location reflects a login the others missed.
// Caller holds s.mu.
func (s *Store) persist(ctx context.Context, sess *model.Session) error {
	rec := &store.Record{
		Token:    sess.Token,
		Role:     sess.Role,
		Identity: sess.Identity,
		UID:      sess.Identifier(),
	}
	if err := s.durable.SaveSession(ctx, rec); err != nil {
		return fmt.Errorf("durable store: %w", err)
	}
	if err := s.entries.Set(EntryToken, sess.Token); err != nil {
		s.rollback(ctx)
		return fmt.Errorf("token entry: %w", err)
	}
	if err := s.entries.Set(EntryRole, string(sess.Role)); err != nil {
		s.rollback(ctx)
		return fmt.Errorf("role entry: %w", err)
	}
	return nil
}

// rollback clears the durable store and guard entries after a partial
// persist. Best effort: a location that cannot be cleared is logged and
// will be caught as divergence later.
func (s *Store) rollback(ctx context.Context) {
	if err := s.durable.DeleteSession(ctx); err != nil {
		s.logger.Warn("rollback: durable store not cleared", "error", err)
	}
	if err := s.entries.Delete(EntryToken); err != nil {
		s.logger.Warn("rollback: token entry not cleared", "error", err)
	}
	if err := s.entries.Delete(EntryRole); err != nil {
		s.logger.Warn("rollback: role entry not cleared", "error", err)
	}
}

// Logout clears the in-memory session and all persistence locations.
// Idempotent, and it never fails: a storage write error is logged while
// the in-memory state is cleared regardless, so the UI always reflects
// "logged out".
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
	if err := s.durable.DeleteSession(ctx); err != nil {
		s.logger.Warn("logout: durable store not cleared", "error", err)
	}
	if err := s.entries.Delete(EntryToken); err != nil {
		s.logger.Warn("logout: token entry not cleared", "error", err)
	}
	if err := s.entries.Delete(EntryRole); err != nil {
		s.logger.Warn("logout: role entry not cleared", "error", err)
	}
}

// UpdateIdentity sends a partial identity update to the profile endpoint
// selected by the current role and merges the response into the session.
// Token and role are immutable post-login; only identity fields change.
func (s *Store) UpdateIdentity(ctx context.Context, fields map[string]any) (model.Identity, error) {
	s.mu.Lock()
	if s.cur == nil {
		s.mu.Unlock()
		return nil, model.ErrNoActiveSession
	}
	role := s.cur.Role
	s.mu.Unlock()

	var updated map[string]any
	var err error
	if role == model.RoleMerchant {
		updated, err = s.api.UpdateMerchantProfile(ctx, fields)
	} else {
		updated, err = s.api.UpdateCustomerProfile(ctx, fields)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		// Logged out while the update was in flight; discard the response.
		return nil, model.ErrNoActiveSession
	}

	merged := s.cur.Identity.Clone()
	if merged == nil {
		merged = model.Identity{}
	}
	for k, v := range identity.Record(updated) {
		// The canonical identifier never changes once resolved.
		if k == model.IdentifierKey {
			continue
		}
		merged[k] = v
	}
	merged = identity.Merge(merged, s.cur.Identifier())

	next := model.Session{Token: s.cur.Token, Role: s.cur.Role, Identity: merged}
	if err := s.persist(ctx, &next); err != nil {
		// The rollback wiped the stored locations. Keeping the old
		// in-memory session would leave it claiming "logged in" while the
		// guards say otherwise, so force the logout to completion.
		s.cur = nil
		s.logger.Warn("session persist failed during update, forcing logout", "error", err)
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s.cur = &next

	return merged.Clone(), nil
}

// IsSessionPresent is the sole "authenticated" predicate collaborators
// should rely on: true iff the guard-accessible token entry exists and an
// identifier is resolvable somewhere. A token entry with no reachable
// identifier is divergence, recovered by forcing logout.
func (s *Store) IsSessionPresent() bool {
	if s.entries.Get(EntryToken) == "" {
		return false
	}

	s.mu.Lock()
	if s.cur != nil && s.cur.Identifier() != "" {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	rec, err := s.durable.GetSession(context.Background())
	if err == nil && rec != nil {
		if identity.Extract(rec.Identity) != "" || rec.UID != "" {
			return true
		}
	}

	s.logger.Warn("guard entry claims a session but no identifier is reachable, forcing logout")
	s.Logout(context.Background())
	return false
}

// PersistedRole returns the role recorded in the guard-accessible store,
// or "" when absent. Guards use it for role matching so that both
// enforcement points gate on the same persisted state.
func (s *Store) PersistedRole() model.Role {
	return model.Role(s.entries.Get(EntryRole))
}

// Restore reconstructs the session at process start from the durable
// store. A record missing an identifier falls back to the dedicated uid
// slot; a parse failure or divergence between locations is treated as
// corrupted state and recovered by logout. An absent store means no
// session.
func (s *Store) Restore(ctx context.Context) error {
	rec, err := s.durable.GetSession(ctx)
	if err != nil {
		s.logger.Warn("durable session unreadable, resetting to logged out", "error", err)
		s.Logout(ctx)
		return nil
	}
	if rec == nil {
		if s.entries.Get(EntryToken) != "" {
			s.logger.Warn("guard entries present without durable session, resetting")
			s.Logout(ctx)
		}
		return nil
	}

	id := identity.Extract(rec.Identity)
	if id == "" {
		id = rec.UID
	}
	if rec.Token == "" || !rec.Role.Valid() || id == "" {
		s.logger.Warn("durable session incomplete, resetting to logged out")
		s.Logout(ctx)
		return nil
	}
	if s.entries.Get(EntryToken) != rec.Token || s.entries.Get(EntryRole) != string(rec.Role) {
		s.logger.Warn("persistence locations diverged, resetting to logged out")
		s.Logout(ctx)
		return nil
	}

	sess := model.Session{
		Token:    rec.Token,
		Role:     rec.Role,
		Identity: identity.Merge(rec.Identity, id),
	}

	s.mu.Lock()
	s.cur = &sess
	s.mu.Unlock()

	s.logger.Info("session restored", "role", sess.Role, "uid", id)
	return nil
}
