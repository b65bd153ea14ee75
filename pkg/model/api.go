package model

import "time"

// Response is the standard JSON envelope returned by the gateway API.
type Response struct {
	Status    string       `json:"status"`
	RequestID string       `json:"request_id"`
	Timestamp time.Time    `json:"timestamp"`
	Data      any          `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the error payload inside a gateway Response. Message is
// always safe to display; internal reasons stay in the logs.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Gateway error codes.
const (
	CodeChoiceRequired     = "CHOICE_REQUIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNoActiveSession    = "NO_ACTIVE_SESSION"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)
