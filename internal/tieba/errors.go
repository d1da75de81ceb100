package tieba

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors for Tieba operations.
var (
	// ErrInvalidCredential indicates the session credential failed validation.
	ErrInvalidCredential = errors.New("tieba: invalid or expired credential")

	// ErrEmptyResponse indicates the platform returned an empty body.
	ErrEmptyResponse = errors.New("tieba: empty response")

	// ErrMalformedResponse indicates a 2xx response missing required fields.
	ErrMalformedResponse = errors.New("tieba: malformed response")

	// ErrMissingToken indicates the security token field was absent or empty.
	ErrMissingToken = errors.New("tieba: missing tbs token")

	// ErrUpstreamStatus indicates a non-2xx response from the platform.
	ErrUpstreamStatus = errors.New("tieba: unexpected upstream status")

	// ErrUpstreamRejected indicates a 2xx response whose success marker was
	// absent; the server-supplied message is carried alongside when present.
	ErrUpstreamRejected = errors.New("tieba: request rejected by platform")
)

// APIError is a Tieba-specific error with request context. StatusCode is the
// HTTP status the transport reported, or zero when the request never produced
// a response.
type APIError struct {
	Op         string // operation that failed
	StatusCode int    // HTTP status code if applicable
	ServerMsg  string // server-supplied error message if present
	Err        error  // underlying error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.ServerMsg != "":
		return fmt.Sprintf("tieba %s: %v: %s", e.Op, e.Err, e.ServerMsg)
	case e.StatusCode != 0:
		return fmt.Sprintf("tieba %s: %v (status %d)", e.Op, e.Err, e.StatusCode)
	default:
		return fmt.Sprintf("tieba %s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code the transport reported. It is the
// hook the retry policy uses to classify the failure.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// NewAPIError creates a new APIError.
func NewAPIError(op string, err error) *APIError {
	return &APIError{Op: op, Err: err}
}

// NewAPIErrorWithStatus creates a new APIError carrying an HTTP status code.
func NewAPIErrorWithStatus(op string, status int, err error) *APIError {
	return &APIError{Op: op, StatusCode: status, Err: err}
}

// IsRateLimited returns true if the error is a 429 from the platform.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsInvalidCredential returns true if the error indicates a rejected credential.
func IsInvalidCredential(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}
