package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/me/shopgate/internal/resolver"
	"github.com/me/shopgate/pkg/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chooseRequest struct {
	Role string `json:"role"`
}

// handleLogin runs the credential resolver. An ambiguous email suspends
// the protocol and is reported as CHOICE_REQUIRED; every failure is the
// same generic message, whatever the underlying cause.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondError(w, reqID, http.StatusBadRequest, &model.ErrorDetail{
			Code:    model.CodeValidation,
			Message: "email and password are required",
		})
		return
	}

	out, err := g.resolver.Submit(r.Context(), req.Email, req.Password)
	g.respondResolverOutcome(w, reqID, out, err)
}

// handleChoose resumes a suspended login with the chosen role.
func (g *Gateway) handleChoose(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req chooseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.ErrorDetail{
			Code:    model.CodeValidation,
			Message: "role is required",
		})
		return
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		respondError(w, reqID, http.StatusBadRequest, &model.ErrorDetail{
			Code:    model.CodeValidation,
			Message: "role must be customer or merchant",
		})
		return
	}

	out, err := g.resolver.Choose(r.Context(), role)
	g.respondResolverOutcome(w, reqID, out, err)
}

// handleCancel abandons a pending role choice.
func (g *Gateway) handleCancel(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	g.resolver.Cancel(r.Context())
	respondOK(w, reqID, map[string]any{"state": string(resolver.StateIdle)})
}

func (g *Gateway) respondResolverOutcome(w http.ResponseWriter, reqID string, out resolver.Outcome, err error) {
	switch {
	case errors.Is(err, model.ErrLoginInFlight):
		respondError(w, reqID, http.StatusConflict, &model.ErrorDetail{
			Code:    model.CodeValidation,
			Message: "a login attempt is already in progress",
		})
	case errors.Is(err, model.ErrNoPendingChoice):
		respondError(w, reqID, http.StatusConflict, &model.ErrorDetail{
			Code:    model.CodeValidation,
			Message: "no role choice pending",
		})
	case err != nil:
		// Single generic message for every credential failure.
		respondError(w, reqID, http.StatusUnauthorized, &model.ErrorDetail{
			Code:    model.CodeInvalidCredentials,
			Message: model.ErrInvalidCredentials.Error(),
		})
	case out.State == resolver.StateAwaitingChoice:
		respondJSON(w, http.StatusConflict, reqID, map[string]any{
			"choices": out.Choices,
		}, &model.ErrorDetail{
			Code:    model.CodeChoiceRequired,
			Message: "this email belongs to more than one account type; choose one",
		})
	case out.Stale:
		respondOK(w, reqID, map[string]any{"discarded": true})
	default:
		respondOK(w, reqID, map[string]any{
			"role":     out.Session.Role,
			"home":     out.Home,
			"identity": out.Session.Identity,
		})
	}
}

// handleLogout clears the session. Always succeeds.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	g.store.Logout(r.Context())
	respondOK(w, reqID, map[string]any{"authenticated": false})
}

// handleSession reports the current session snapshot.
func (g *Gateway) handleSession(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	if !g.store.IsSessionPresent() {
		respondOK(w, reqID, map[string]any{"authenticated": false})
		return
	}
	sess, ok := g.store.Current()
	if !ok {
		respondOK(w, reqID, map[string]any{"authenticated": false})
		return
	}
	respondOK(w, reqID, map[string]any{
		"authenticated": true,
		"role":          sess.Role,
		"identity":      sess.Identity,
	})
}

// handleUpdateProfile forwards a partial identity update to the profile
// endpoint for the current role.
func (g *Gateway) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || len(fields) == 0 {
		respondError(w, reqID, http.StatusBadRequest, &model.ErrorDetail{
			Code:    model.CodeValidation,
			Message: "no fields to update",
		})
		return
	}

	merged, err := g.store.UpdateIdentity(r.Context(), fields)
	switch {
	case errors.Is(err, model.ErrNoActiveSession):
		respondError(w, reqID, http.StatusUnauthorized, &model.ErrorDetail{
			Code:    model.CodeNoActiveSession,
			Message: model.ErrNoActiveSession.Error(),
		})
	case err != nil:
		g.logger.Warn("profile update failed", "error", err)
		respondError(w, reqID, http.StatusBadGateway, &model.ErrorDetail{
			Code:    model.CodeInternal,
			Message: model.Reason(err),
		})
	default:
		respondOK(w, reqID, map[string]any{"identity": merged})
	}
}

// handleHealth reports gateway liveness.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, map[string]any{
		"status": "ok",
		"uptime": time.Since(g.startTime).String(),
	})
}

// The views below stand in for the display layer, which is out of scope:
// they only prove which guard decisions let a request through.

func (g *Gateway) handleLoginView(w http.ResponseWriter, r *http.Request) {
	respondOK(w, RequestIDFromContext(r.Context()), map[string]any{"view": "login"})
}

func (g *Gateway) handleHome(w http.ResponseWriter, r *http.Request) {
	respondOK(w, RequestIDFromContext(r.Context()), map[string]any{"view": "home"})
}

func (g *Gateway) handleMerchantHome(w http.ResponseWriter, r *http.Request) {
	sess, _ := g.store.Current()
	respondOK(w, RequestIDFromContext(r.Context()), map[string]any{
		"view":     "merchant-home",
		"identity": sess.Identity,
	})
}

func (g *Gateway) handleAccountProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := g.store.Current()
	respondOK(w, RequestIDFromContext(r.Context()), map[string]any{
		"view":     "account-profile",
		"identity": sess.Identity,
	})
}

func (g *Gateway) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	sess, _ := g.store.Current()
	respondOK(w, RequestIDFromContext(r.Context()), map[string]any{
		"view":     "admin-home",
		"identity": sess.Identity,
	})
}
