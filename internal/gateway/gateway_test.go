package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/me/shopgate/internal/resolver"
	"github.com/me/shopgate/internal/session"
	"github.com/me/shopgate/internal/shopapi"
	"github.com/me/shopgate/internal/store"
	"github.com/me/shopgate/pkg/model"
)

// fakeUpstream stands in for the storefront API: it serves both the
// membership check and the per-namespace login and profile endpoints.
type fakeUpstream struct {
	merchantExists bool
	customerErr    error
	merchantErr    error
	updateErr      error
	identityRole   string // optional "role" field inside the user object
}

func (f *fakeUpstream) CheckMerchantEmail(context.Context, string) (bool, error) {
	return f.merchantExists, nil
}

func (f *fakeUpstream) LoginCustomer(_ context.Context, creds shopapi.Credentials) (*shopapi.LoginReply, error) {
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	user := map[string]any{"_id": "u1", "email": creds.Email}
	if f.identityRole != "" {
		user["role"] = f.identityRole
	}
	return &shopapi.LoginReply{
		Token: "tok-cust",
		Raw:   map[string]any{"token": "tok-cust", "user": user},
	}, nil
}

func (f *fakeUpstream) LoginMerchant(_ context.Context, creds shopapi.Credentials) (*shopapi.LoginReply, error) {
	if f.merchantErr != nil {
		return nil, f.merchantErr
	}
	return &shopapi.LoginReply{
		Token: "tok-merch",
		Raw:   map[string]any{"token": "tok-merch", "seller": map[string]any{"_id": "s1", "email": creds.Email}},
	}, nil
}

func (f *fakeUpstream) UpdateCustomerProfile(_ context.Context, fields map[string]any) (map[string]any, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return map[string]any{"user": fields}, nil
}

func (f *fakeUpstream) UpdateMerchantProfile(_ context.Context, fields map[string]any) (map[string]any, error) {
	return map[string]any{"seller": fields}, nil
}

type envelope struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupGateway(t *testing.T, up *fakeUpstream) (*Gateway, *session.Store, session.EntryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	durable, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { durable.Close() })
	if err := durable.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	entries, err := session.NewFileEntries(t.TempDir())
	if err != nil {
		t.Fatalf("open entries: %v", err)
	}

	st := session.New(durable, entries, logger)
	st.SetAPI(up)
	res := resolver.New(up, st, logger)
	return New(st, entries, res, logger), st, entries
}

func doJSON(t *testing.T, g *Gateway, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %q)", err, w.Body.String())
		}
	}
	return w, env
}

func login(t *testing.T, g *Gateway, email, password string) envelope {
	t.Helper()
	w, env := doJSON(t, g, http.MethodPost, "/api/login", map[string]string{
		"email": email, "password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", w.Code, w.Body.String())
	}
	return env
}

func TestLogin_Unambiguous(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})

	env := login(t, g, "a@x.com", "pw")
	if env.Status != "ok" {
		t.Fatalf("expected ok, got %+v", env)
	}
	if env.Data["role"] != "customer" {
		t.Errorf("expected customer role, got %v", env.Data["role"])
	}
	if env.Data["home"] != "/home" {
		t.Errorf("expected /home, got %v", env.Data["home"])
	}
}

func TestLogin_AmbiguousThenChoose(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{merchantExists: true})

	w, env := doJSON(t, g, http.MethodPost, "/api/login", map[string]string{
		"email": "both@x.com", "password": "pw",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if env.Error == nil || env.Error.Code != model.CodeChoiceRequired {
		t.Fatalf("expected CHOICE_REQUIRED, got %+v", env.Error)
	}
	choices, _ := env.Data["choices"].([]any)
	if len(choices) != 2 {
		t.Fatalf("expected two choices, got %v", env.Data["choices"])
	}

	w, env = doJSON(t, g, http.MethodPost, "/api/login/choose", map[string]string{"role": "merchant"})
	if w.Code != http.StatusOK {
		t.Fatalf("choose: status %d body %s", w.Code, w.Body.String())
	}
	if env.Data["role"] != "merchant" || env.Data["home"] != "/merchant/home" {
		t.Errorf("expected resolved merchant session, got %v", env.Data)
	}

	// The merchant route group is now reachable.
	w, env = doJSON(t, g, http.MethodGet, "/merchant/home", nil)
	if w.Code != http.StatusOK || env.Data["view"] != "merchant-home" {
		t.Errorf("merchant home: status %d data %v", w.Code, env.Data)
	}
}

func TestLogin_GenericFailure(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{
		customerErr: &model.APIError{Status: 401, Message: "password mismatch for user u1"},
		merchantErr: &model.APIError{Status: 404, Message: "no shop for email"},
	})

	w, env := doJSON(t, g, http.MethodPost, "/api/login", map[string]string{
		"email": "a@x.com", "password": "bad",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if env.Error == nil || env.Error.Code != model.CodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS, got %+v", env.Error)
	}
	// Upstream detail must not reach the response.
	if env.Error.Message != model.ErrInvalidCredentials.Error() {
		t.Errorf("message leaks upstream detail: %q", env.Error.Message)
	}
}

func TestLogin_Validation(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})

	w, env := doJSON(t, g, http.MethodPost, "/api/login", map[string]string{"email": "a@x.com"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if env.Error == nil || env.Error.Code != model.CodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %+v", env.Error)
	}
}

func TestChoose_WithoutPending(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})

	w, _ := doJSON(t, g, http.MethodPost, "/api/login/choose", map[string]string{"role": "customer"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestCancel_AbandonsChoice(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{merchantExists: true})

	if w, _ := doJSON(t, g, http.MethodPost, "/api/login", map[string]string{
		"email": "both@x.com", "password": "pw",
	}); w.Code != http.StatusConflict {
		t.Fatalf("expected suspended login, got %d", w.Code)
	}
	if w, _ := doJSON(t, g, http.MethodPost, "/api/login/cancel", nil); w.Code != http.StatusOK {
		t.Fatalf("cancel: status %d", w.Code)
	}
	if w, _ := doJSON(t, g, http.MethodPost, "/api/login/choose", map[string]string{"role": "merchant"}); w.Code != http.StatusConflict {
		t.Errorf("choice must be gone after cancel, got %d", w.Code)
	}
}

func TestRequireRole_RedirectsUnauthenticated(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})

	for _, path := range []string{"/merchant/home", "/account/profile", "/admin/home"} {
		w, _ := doJSON(t, g, http.MethodGet, path, nil)
		if w.Code != http.StatusSeeOther {
			t.Errorf("%s: expected 303, got %d", path, w.Code)
			continue
		}
		if loc := w.Header().Get("Location"); loc != "/login" {
			t.Errorf("%s: expected redirect to /login, got %q", path, loc)
		}
	}
}

func TestRequireRole_RejectsWrongRole(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})
	login(t, g, "a@x.com", "pw") // customer session

	w, _ := doJSON(t, g, http.MethodGet, "/merchant/home", nil)
	if w.Code != http.StatusSeeOther {
		t.Errorf("customer on merchant route: expected 303, got %d", w.Code)
	}
	w, env := doJSON(t, g, http.MethodGet, "/account/profile", nil)
	if w.Code != http.StatusOK || env.Data["view"] != "account-profile" {
		t.Errorf("customer on customer route: status %d data %v", w.Code, env.Data)
	}
}

func TestClientGuard_CatchesOrphanEntries(t *testing.T) {
	// Guard entries claim a session the other locations know nothing
	// about. The request-level guard passes on the entries alone; the
	// client guard must still reject at render time.
	g, _, entries := setupGateway(t, &fakeUpstream{})
	if err := entries.Set(session.EntryToken, "tok-ghost"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := entries.Set(session.EntryRole, "customer"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	w, _ := doJSON(t, g, http.MethodGet, "/account/profile", nil)
	if w.Code != http.StatusSeeOther {
		t.Errorf("expected render-time rejection, got %d", w.Code)
	}
}

func TestAdminRoute(t *testing.T) {
	t.Run("admin customer admitted", func(t *testing.T) {
		g, _, _ := setupGateway(t, &fakeUpstream{identityRole: "admin"})
		login(t, g, "root@x.com", "pw")

		w, env := doJSON(t, g, http.MethodGet, "/admin/home", nil)
		if w.Code != http.StatusOK || env.Data["view"] != "admin-home" {
			t.Errorf("status %d data %v", w.Code, env.Data)
		}
	})

	t.Run("plain customer redirected", func(t *testing.T) {
		g, _, _ := setupGateway(t, &fakeUpstream{})
		login(t, g, "a@x.com", "pw")

		w, _ := doJSON(t, g, http.MethodGet, "/admin/home", nil)
		if w.Code != http.StatusSeeOther {
			t.Errorf("expected 303, got %d", w.Code)
		}
	})
}

func TestLogout_GatesImmediately(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})
	login(t, g, "a@x.com", "pw")

	if w, _ := doJSON(t, g, http.MethodGet, "/account/profile", nil); w.Code != http.StatusOK {
		t.Fatalf("expected access before logout, got %d", w.Code)
	}

	w, env := doJSON(t, g, http.MethodPost, "/api/logout", nil)
	if w.Code != http.StatusOK || env.Data["authenticated"] != false {
		t.Fatalf("logout: status %d data %v", w.Code, env.Data)
	}

	if w, _ := doJSON(t, g, http.MethodGet, "/account/profile", nil); w.Code != http.StatusSeeOther {
		t.Errorf("expected 303 after logout, got %d", w.Code)
	}
	_, env = doJSON(t, g, http.MethodGet, "/api/session", nil)
	if env.Data["authenticated"] != false {
		t.Errorf("session must report unauthenticated, got %v", env.Data)
	}
}

func TestSessionEndpoint(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})

	_, env := doJSON(t, g, http.MethodGet, "/api/session", nil)
	if env.Data["authenticated"] != false {
		t.Fatalf("expected unauthenticated, got %v", env.Data)
	}

	login(t, g, "a@x.com", "pw")
	_, env = doJSON(t, g, http.MethodGet, "/api/session", nil)
	if env.Data["authenticated"] != true || env.Data["role"] != "customer" {
		t.Errorf("expected authenticated customer, got %v", env.Data)
	}
}

func TestUpdateProfile(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})
	login(t, g, "a@x.com", "pw")

	w, env := doJSON(t, g, http.MethodPut, "/api/profile", map[string]any{"name": "Grace"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	identity, _ := env.Data["identity"].(map[string]any)
	if identity["name"] != "Grace" {
		t.Errorf("expected merged name, got %v", identity)
	}
	if identity[model.IdentifierKey] != "u1" {
		t.Errorf("identifier must survive the update, got %v", identity)
	}
}

func TestUpdateProfile_TransportFailure(t *testing.T) {
	up := &fakeUpstream{}
	g, _, _ := setupGateway(t, up)
	login(t, g, "a@x.com", "pw")
	up.updateErr = &model.TransportError{Op: "PUT /api/v2/user/profile", Err: errors.New("timeout")}

	w, env := doJSON(t, g, http.MethodPut, "/api/profile", map[string]any{"name": "x"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if env.Error == nil || env.Error.Code != model.CodeInternal {
		t.Fatalf("expected INTERNAL_ERROR, got %+v", env.Error)
	}
	// The message is about the update, not the credentials.
	if env.Error.Message != model.GenericFailureMessage {
		t.Errorf("expected the neutral failure message, got %q", env.Error.Message)
	}
	if env.Error.Message == model.ErrInvalidCredentials.Error() {
		t.Error("a profile failure must not read like a login failure")
	}
}

func TestUpdateProfile_NoSession(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})

	w, env := doJSON(t, g, http.MethodPut, "/api/profile", map[string]any{"name": "x"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if env.Error == nil || env.Error.Code != model.CodeNoActiveSession {
		t.Errorf("expected NO_ACTIVE_SESSION, got %+v", env.Error)
	}
}

func TestHealth(t *testing.T) {
	g, _, _ := setupGateway(t, &fakeUpstream{})

	w, env := doJSON(t, g, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK || env.Data["status"] != "ok" {
		t.Errorf("status %d data %v", w.Code, env.Data)
	}
}
