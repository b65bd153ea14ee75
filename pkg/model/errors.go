package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is the single user-facing login failure. It is
	// deliberately generic: it never reveals which namespace rejected the
	// attempt, or whether the email was known at all.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNoActiveSession indicates an authenticated-only operation was
	// invoked while logged out.
	ErrNoActiveSession = errors.New("no active session")

	// ErrCorruptedState indicates the persisted session locations disagree
	// or failed to parse. Recovery is a forced logout; the user only ever
	// sees "please sign in again".
	ErrCorruptedState = errors.New("session state corrupted, please sign in again")

	// ErrLoginInFlight indicates a login attempt was submitted while a
	// previous one is still pending. The new submission is dropped.
	ErrLoginInFlight = errors.New("login attempt already in progress")

	// ErrNoPendingChoice indicates a role choice was supplied while the
	// resolver was not awaiting one.
	ErrNoPendingChoice = errors.New("no role choice pending")
)

// APIError is a failure reported by an upstream endpoint, carrying the
// human-readable reason the server gave, if any.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %d", e.Status)
}

// TransportError is a network or infrastructure failure during an upstream
// call. It is logged internally and surfaced to users as a generic failure,
// never retried automatically.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GenericFailureMessage is the displayable fallback for upstream failures
// that carry no server-given reason.
const GenericFailureMessage = "request failed, please try again"

// Reason extracts the server-reported message from an upstream error.
// Transport and unknown failures are intentionally collapsed to a neutral
// message; internals stay in the logs.
func Reason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericFailureMessage
}
