// Package resolver implements the login orchestration protocol: probe the
// merchant namespace for ambiguity, attempt logins in a defined order, and
// suspend for an explicit role choice when the email could belong to both
// namespaces.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/me/shopgate/internal/shopapi"
	"github.com/me/shopgate/pkg/model"
)

// State is the resolver's position in the login protocol.
type State string

const (
	// StateIdle means no attempt is underway.
	StateIdle State = "idle"
	// StateChecking means the namespace membership check is in flight.
	StateChecking State = "checking_ambiguity"
	// StateAttempting means a login call is in flight, after the membership
	// check completed or a role was chosen.
	StateAttempting State = "attempting_login"
	// StateAwaitingChoice means the email may belong to both namespaces
	// and the protocol is suspended until the caller picks a role.
	StateAwaitingChoice State = "awaiting_role_choice"
	// StateResolved and StateFailed are terminal per attempt; the resolver
	// itself returns to idle so the next attempt can run.
	StateResolved State = "resolved"
	StateFailed   State = "failed"
)

// Outcome is the result of one Submit or Choose call.
type Outcome struct {
	State   State
	Session model.Session // set when State is StateResolved
	Home    string        // role-based landing route when resolved
	Choices []model.Role  // set when State is StateAwaitingChoice
	Stale   bool          // attempt was cancelled mid-flight; result discarded
}

// API is the slice of the upstream client the resolver needs directly.
// Login attempts go through the session store, not this interface.
type API interface {
	CheckMerchantEmail(ctx context.Context, email string) (bool, error)
}

// SessionStore is the slice of the session store the resolver drives.
type SessionStore interface {
	Login(ctx context.Context, creds shopapi.Credentials, role model.Role) (model.Session, error)
	Logout(ctx context.Context)
}

// Resolver executes the login protocol. At most one network login is in
// flight per resolver at a time; a second submission while one is pending
// is rejected rather than run concurrently, and a response landing after
// Cancel is discarded.
type Resolver struct {
	mu       sync.Mutex
	state    State
	pending  *shopapi.Credentials // parked while awaiting the role choice
	attempt  string               // id of the most recent attempt
	inFlight bool

	api    API
	store  SessionStore
	logger *slog.Logger
}

// New creates a resolver bound to one upstream client and one session store.
func New(api API, store SessionStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		state:  StateIdle,
		api:    api,
		store:  store,
		logger: logger.With("component", "resolver"),
	}
}

// State returns the resolver's current protocol state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Submit starts a login attempt. The membership check always completes (or
// is declared inconclusive) before any login call, so a user with accounts
// in both namespaces is never logged into the wrong one by a first-match
// heuristic. A submission while another attempt is in flight returns
// model.ErrLoginInFlight; a submission while a role choice is pending
// supersedes the parked credentials.
func (r *Resolver) Submit(ctx context.Context, email, password string) (Outcome, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return Outcome{}, model.ErrLoginInFlight
	}
	attempt := uuid.NewString()
	r.attempt = attempt
	r.inFlight = true
	r.state = StateChecking
	r.pending = nil
	r.mu.Unlock()

	creds := shopapi.Credentials{Email: email, Password: password}

	// Only the email goes out here; no password leaves the client before
	// a login attempt.
	exists, err := r.api.CheckMerchantEmail(ctx, email)
	if err != nil {
		// Inconclusive check: proceed down the unambiguous path rather
		// than blocking the login on a probe.
		r.logger.Warn("membership check inconclusive", "error", err)
		exists = false
	}

	if exists {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.attempt != attempt {
			r.inFlight = false
			return Outcome{Stale: true, State: r.state}, nil
		}
		r.pending = &creds
		r.inFlight = false
		r.state = StateAwaitingChoice
		r.logger.Info("ambiguous identity, awaiting role choice")
		return Outcome{
			State:   StateAwaitingChoice,
			Choices: []model.Role{model.RoleCustomer, model.RoleMerchant},
		}, nil
	}

	r.mu.Lock()
	if r.attempt == attempt {
		r.state = StateAttempting
	}
	r.mu.Unlock()

	// Unambiguous path: customer first, then merchant. Failure causes are
	// deliberately not distinguished here: falling through on "wrong
	// password" exactly like "account not found" avoids leaking which
	// namespace knows the email.
	sess, err := r.store.Login(ctx, creds, model.RoleCustomer)
	if err != nil {
		r.logger.Debug("customer namespace rejected, trying merchant", "error", err)
		sess, err = r.store.Login(ctx, creds, model.RoleMerchant)
	}

	return r.finish(ctx, attempt, sess, err)
}

// Choose resumes a suspended attempt with the chosen role: exactly one
// login call, against that role's endpoint, with the originally submitted
// credentials. On failure the resolver returns to idle and does not retry
// the other role.
func (r *Resolver) Choose(ctx context.Context, role model.Role) (Outcome, error) {
	r.mu.Lock()
	if r.state != StateAwaitingChoice || r.pending == nil {
		r.mu.Unlock()
		return Outcome{}, model.ErrNoPendingChoice
	}
	if !role.Valid() {
		r.mu.Unlock()
		return Outcome{}, fmt.Errorf("unknown role %q", role)
	}
	creds := *r.pending
	r.pending = nil // the parked credentials are good for one attempt only
	attempt := uuid.NewString()
	r.attempt = attempt
	r.inFlight = true
	r.state = StateAttempting
	r.mu.Unlock()

	sess, err := r.store.Login(ctx, creds, role)
	return r.finish(ctx, attempt, sess, err)
}

// Cancel abandons a pending role choice: the held credentials are
// discarded, the resolver returns to idle, and nothing is retried. Called
// while a login is in flight, it marks that attempt stale so its late
// response is discarded when it lands.
func (r *Resolver) Cancel(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	r.attempt = ""
	r.state = StateIdle
}

// finish applies the terminal transition for one attempt. A result whose
// attempt id is no longer current was cancelled mid-flight: it is
// discarded, and a session it managed to persist is reverted so a stale
// response can never overwrite fresher state.
func (r *Resolver) finish(ctx context.Context, attempt string, sess model.Session, err error) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.attempt != attempt {
		r.inFlight = false
		if err == nil {
			r.logger.Info("discarding stale login response", "role", sess.Role)
			r.store.Logout(ctx)
		}
		return Outcome{Stale: true, State: r.state}, nil
	}
	r.inFlight = false

	if err != nil {
		r.state = StateIdle
		r.logger.Info("login failed", "error", err)
		// One generic failure regardless of which namespace rejected what.
		return Outcome{State: StateFailed}, model.ErrInvalidCredentials
	}

	r.state = StateIdle
	r.logger.Info("login resolved", "role", sess.Role, "home", sess.HomeRoute())
	return Outcome{State: StateResolved, Session: sess, Home: sess.HomeRoute()}, nil
}
