// Package shopapi is the HTTP client for the upstream storefront backend.
// It owns the two login endpoints, the merchant membership check, and the
// per-role profile endpoints. Calls are single-shot: transport failures
// are surfaced to the caller, never retried silently.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/me/shopgate/pkg/model"
)

// Upstream endpoint paths. The wire shapes are owned by the backend.
const (
	pathEmailExists     = "/api/v2/shop/email-exists"
	pathCustomerLogin   = "/api/v2/user/login"
	pathMerchantLogin   = "/api/v2/shop/login"
	pathCustomerProfile = "/api/v2/user/profile"
	pathMerchantProfile = "/api/v2/shop/profile"
)

// TokenFunc is the credential-attachment hook. Every outgoing request to a
// protected endpoint invokes it to pick up the current bearer token; an
// empty return sends the request unauthenticated.
type TokenFunc func() string

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Credentials is an email/password pair as entered by the user.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginReply is a successful authentication response: the issued bearer
// token plus the raw payload, whose shape varies by endpoint. Identifier
// extraction from Raw is the identity package's job, not this client's.
type LoginReply struct {
	Token string
	Raw   map[string]any
}

// Client talks to the storefront backend.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	tokenFn    TokenFunc
}

// NewClient creates an upstream API client. tokenFn may be nil when the
// client is only used for unauthenticated calls.
func NewClient(config Config, tokenFn TokenFunc, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger.With("component", "shopapi"),
		tokenFn:    tokenFn,
	}
}

// CheckMerchantEmail reports whether an account with this email exists in
// the merchant namespace, independent of the customer namespace. Only the
// email is sent; no password leaves the client before a login attempt.
func (c *Client) CheckMerchantEmail(ctx context.Context, email string) (bool, error) {
	var reply struct {
		Exists bool `json:"exists"`
	}
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, pathEmailExists, body, false, &reply); err != nil {
		return false, err
	}
	return reply.Exists, nil
}

// LoginCustomer attempts authentication against the customer namespace.
func (c *Client) LoginCustomer(ctx context.Context, creds Credentials) (*LoginReply, error) {
	return c.login(ctx, pathCustomerLogin, creds)
}

// LoginMerchant attempts authentication against the merchant namespace.
func (c *Client) LoginMerchant(ctx context.Context, creds Credentials) (*LoginReply, error) {
	return c.login(ctx, pathMerchantLogin, creds)
}

func (c *Client) login(ctx context.Context, path string, creds Credentials) (*LoginReply, error) {
	var raw map[string]any
	if err := c.do(ctx, http.MethodPost, path, creds, false, &raw); err != nil {
		return nil, err
	}

	token, _ := raw["token"].(string)
	if token == "" {
		// A 2xx without a token is still a failed login; keep the server's
		// reason if it gave one.
		msg, _ := raw["message"].(string)
		return nil, &model.APIError{Status: http.StatusOK, Message: msg}
	}
	return &LoginReply{Token: token, Raw: raw}, nil
}

// UpdateCustomerProfile sends a partial identity update to the customer
// profile endpoint with the bearer token attached.
func (c *Client) UpdateCustomerProfile(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.updateProfile(ctx, pathCustomerProfile, fields)
}

// UpdateMerchantProfile sends a partial identity update to the merchant
// profile endpoint with the bearer token attached.
func (c *Client) UpdateMerchantProfile(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.updateProfile(ctx, pathMerchantProfile, fields)
}

func (c *Client) updateProfile(ctx context.Context, path string, fields map[string]any) (map[string]any, error) {
	var raw map[string]any
	if err := c.do(ctx, http.MethodPut, path, fields, true, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// do performs one HTTP exchange and decodes the JSON response into out.
// authed requests invoke the token hook. Exactly one request is issued per
// call; the caller decides what a failure means.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	op := method + " " + path
	url := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.tokenFn != nil {
		if token := c.tokenFn(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("upstream request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}

	c.logger.Debug("upstream response", "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &failure)
		return &model.APIError{Status: resp.StatusCode, Message: failure.Message}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response (%s): %w", op, err)
		}
	}
	return nil
}
