package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DomainError represents a classified error with a structured error code.
//
// Errors produced from an HTTP response also carry the response status and
// the raw error payload the server sent.
type DomainError struct {
	Code    string          // Error code (e.g., "MUL-AUTH-4010")
	Message string          // Human-readable message
	Details string          // Optional additional details
	Status  int             // HTTP status, 0 when no response was received
	Payload json.RawMessage // Server error payload (if any)
	Cause   error           // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches another *DomainError by code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

func (e *DomainError) clone() *DomainError {
	c := *e
	return &c
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := e.clone()
	c.Details = details
	return c
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithResponse returns a copy of the error carrying an HTTP status and payload.
func (e *DomainError) WithResponse(status int, payload []byte) *DomainError {
	c := e.clone()
	c.Status = status
	if len(payload) > 0 {
		c.Payload = append(json.RawMessage(nil), payload...)
	}
	return c
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// ServerMessage extracts a human readable message from the error payload.
//
// Django REST framework reports errors as {"detail": "..."}, as
// {"non_field_errors": ["..."]} or as per-field lists. The first usable
// string wins; an empty string means the payload carried none.
func (e *DomainError) ServerMessage() string {
	return PayloadMessage(e.Payload)
}

// PayloadMessage extracts the server message from a raw error payload.
func PayloadMessage(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}

	for _, key := range []string{"detail", "message", "error", "non_field_errors"} {
		if msg := firstString(body[key]); msg != "" {
			return msg
		}
	}
	return ""
}

func firstString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Request classification (returned by the API client)
// ============================================================================

var (
	// ErrNetwork indicates no response was received (dial failure, timeout).
	ErrNetwork = NewDomainError("MUL-NET-0001", "no response from server")

	// ErrAuth indicates the server rejected the credential (401).
	ErrAuth = NewDomainError("MUL-AUTH-4010", "authentication required")

	// ErrForbidden indicates the user is authenticated but not permitted (403).
	ErrForbidden = NewDomainError("MUL-AUTH-4030", "access forbidden")

	// ErrRateLimited indicates the server asked the client to back off (429).
	ErrRateLimited = NewDomainError("MUL-RATE-4290", "rate limit exceeded")

	// ErrServer indicates any other non-2xx response.
	ErrServer = NewDomainError("MUL-SRV-5000", "server error")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrLoginTooSoon indicates login was called again inside the minimum interval.
	ErrLoginTooSoon = NewDomainError("MUL-SESS-4290", "please wait before trying again")

	// ErrLoginFailed is the fallback when the server gives no reason.
	ErrLoginFailed = NewDomainError("MUL-SESS-4010", "Invalid username or password")

	// ErrNotAuthenticated indicates no credential is available.
	ErrNotAuthenticated = NewDomainError("MUL-SESS-4011", "not authenticated")

	// ErrInvalidTransition indicates an illegal session state change.
	ErrInvalidTransition = NewDomainError("MUL-SESS-4091", "invalid session transition")
)

// ============================================================================
// Validation and storage errors
// ============================================================================

var (
	// ErrValidation indicates a request body failed local validation.
	ErrValidation = NewDomainError("MUL-VAL-4000", "validation failed")

	// ErrTokenNotFound indicates the credential store holds no token.
	ErrTokenNotFound = NewDomainError("MUL-STORE-4040", "token not found")

	// ErrTokenSealed indicates a stored token could not be decrypted.
	ErrTokenSealed = NewDomainError("MUL-STORE-4030", "stored token cannot be decrypted")
)
