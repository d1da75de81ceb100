package retry

import (
	"errors"
	"net/http"
)

// Class is the retry classification of a failure.
type Class int

const (
	// ClassRetryable covers network errors, 5xx responses, timeouts, and
	// payload validation failures. Retried with plain backoff escalation.
	ClassRetryable Class = iota

	// ClassRateLimited covers HTTP 429 responses. Retried with doubled
	// backoff escalation, since aggressive retry against a limiter worsens
	// the limiting.
	ClassRateLimited

	// ClassClientError covers 4xx responses other than 429. Terminal: a
	// request-shape problem retries cannot fix.
	ClassClientError
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassRateLimited:
		return "rate_limited"
	case ClassClientError:
		return "client_error"
	default:
		return "unknown"
	}
}

// StatusCoder is implemented by errors that carry the HTTP status code the
// transport reported. It is the only cross-cutting protocol contract the
// policy depends on.
type StatusCoder interface {
	HTTPStatus() int
}

// Classify determines the retry class of a failure.
func Classify(err error) Class {
	var sc StatusCoder
	if !errors.As(err, &sc) {
		return ClassRetryable
	}

	code := sc.HTTPStatus()
	switch {
	case code == http.StatusTooManyRequests:
		return ClassRateLimited
	case code >= 400 && code < 500:
		return ClassClientError
	default:
		return ClassRetryable
	}
}
