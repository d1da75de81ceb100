package retry

import (
	"context"
	"fmt"
	"time"
)

// Default policy constants.
const (
	// DefaultMaxRetries is the default maximum number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultInitialDelay is the default delay seed for backoff escalation.
	DefaultInitialDelay = 3 * time.Second

	// DefaultMultiplier is the default backoff multiplier.
	DefaultMultiplier = 2.0

	// rateLimitEscalation doubles the multiplier for rate-limited failures.
	rateLimitEscalation = 2.0
)

// Policy contains retry policy parameters.
type Policy struct {
	// MaxRetries is the maximum number of retry attempts after the first.
	// Default is 3.
	MaxRetries int

	// InitialDelay seeds the backoff escalation.
	// Default is 3s.
	InitialDelay time.Duration

	// Multiplier is the backoff escalation factor. Rate-limited failures
	// escalate by twice this factor.
	// Default is 2.
	Multiplier float64
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
	}
}

// GetMaxRetries returns the effective max retries.
func (p *Policy) GetMaxRetries() int {
	if p == nil || p.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return p.MaxRetries
}

// GetInitialDelay returns the effective initial delay.
func (p *Policy) GetInitialDelay() time.Duration {
	if p == nil || p.InitialDelay <= 0 {
		return DefaultInitialDelay
	}
	return p.InitialDelay
}

// GetMultiplier returns the effective multiplier.
func (p *Policy) GetMultiplier() float64 {
	if p == nil || p.Multiplier <= 0 {
		return DefaultMultiplier
	}
	return p.Multiplier
}

// Observer is notified before each backoff sleep. It exists so callers can
// surface intermediate failures (which are otherwise swallowed) and so tests
// can assert attempt counts and delay sequences without capturing output.
type Observer func(label string, attempt int, class Class, delay time.Duration, err error)

// Error is the terminal failure of a retried operation. It carries the
// operation label and the number of attempts made.
type Error struct {
	Label    string
	Attempts int
	Class    Class
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Label, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Do executes op under the policy, retrying failures until success, retry
// exhaustion, or a terminal classification. Attempts are strictly sequential;
// a new attempt begins only after the previous failure and the full backoff
// delay have elapsed. The attempt counter and delay are local to this call.
func Do[T any](ctx context.Context, p *Policy, label string, op func(context.Context) (T, error), obs Observer) (T, error) {
	var zero T

	maxRetries := p.GetMaxRetries()
	multiplier := p.GetMultiplier()
	delay := p.GetInitialDelay()
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return zero, &Error{Label: label, Attempts: attempts, Err: ctx.Err()}
		default:
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		attempts++
		class := Classify(err)

		if attempts > maxRetries || class == ClassClientError {
			return zero, &Error{Label: label, Attempts: attempts, Class: class, Err: err}
		}

		if class == ClassRateLimited {
			delay = time.Duration(float64(delay) * multiplier * rateLimitEscalation)
		} else {
			delay = time.Duration(float64(delay) * multiplier)
		}

		if obs != nil {
			obs(label, attempts, class, delay, err)
		}

		select {
		case <-ctx.Done():
			return zero, &Error{Label: label, Attempts: attempts, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
}
