package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusError is a test error carrying an HTTP status code.
type statusError struct {
	code int
}

func (e *statusError) Error() string   { return "status error" }
func (e *statusError) HTTPStatus() int { return e.code }

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, 3*time.Second, p.InitialDelay)
	assert.Equal(t, 2.0, p.Multiplier)
}

func TestPolicy_Getters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		policy        *Policy
		wantRetries   int
		wantDelay     time.Duration
		wantMultipler float64
	}{
		{"nil policy", nil, 3, 3 * time.Second, 2.0},
		{"zero values", &Policy{}, 3, 3 * time.Second, 2.0},
		{"negative values", &Policy{MaxRetries: -1, InitialDelay: -time.Second, Multiplier: -2}, 3, 3 * time.Second, 2.0},
		{
			"custom values",
			&Policy{MaxRetries: 5, InitialDelay: time.Second, Multiplier: 1.5},
			5, time.Second, 1.5,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantRetries, tt.policy.GetMaxRetries())
			assert.Equal(t, tt.wantDelay, tt.policy.GetInitialDelay())
			assert.Equal(t, tt.wantMultipler, tt.policy.GetMultiplier())
		})
	}
}

func TestDo_Success(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := Do(context.Background(), fastPolicy(3), "op",
		func(context.Context) (string, error) {
			calls++
			return "ok", nil
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := Do(context.Background(), fastPolicy(3), "op",
		func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, &statusError{code: 503}
			}
			return 42, nil
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	// An always-failing 5xx triggers exactly maxRetries+1 total attempts.
	for _, maxRetries := range []int{1, 2, 3, 5} {
		calls := 0
		_, err := Do(context.Background(), fastPolicy(maxRetries), "op",
			func(context.Context) (string, error) {
				calls++
				return "", &statusError{code: 500}
			}, nil)

		require.Error(t, err)
		assert.Equal(t, maxRetries+1, calls)

		var rerr *Error
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "op", rerr.Label)
		assert.Equal(t, maxRetries+1, rerr.Attempts)
	}
}

func TestDo_ClientErrorTerminatesImmediately(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code int
	}{
		{"bad request", 400},
		{"unauthorized", 401},
		{"forbidden", 403},
		{"not found", 404},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			_, err := Do(context.Background(), fastPolicy(5), "op",
				func(context.Context) (string, error) {
					calls++
					return "", &statusError{code: tt.code}
				}, nil)

			require.Error(t, err)
			assert.Equal(t, 1, calls)

			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, 1, rerr.Attempts)
			assert.Equal(t, ClassClientError, rerr.Class)
		})
	}
}

func TestDo_RateLimitedIsRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), "op",
		func(context.Context) (string, error) {
			calls++
			return "", &statusError{code: 429}
		}, nil)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_DelayEscalation(t *testing.T) {
	t.Parallel()

	const (
		initial    = time.Millisecond
		multiplier = 2.0
	)

	tests := []struct {
		name       string
		code       int
		wantDelays []time.Duration
	}{
		{
			// Each generic-retryable delay is previous * multiplier.
			name:       "generic retryable",
			code:       502,
			wantDelays: []time.Duration{2 * initial, 4 * initial, 8 * initial},
		},
		{
			// Each rate-limited delay is previous * multiplier * 2.
			name:       "rate limited",
			code:       429,
			wantDelays: []time.Duration{4 * initial, 16 * initial, 64 * initial},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			policy := &Policy{MaxRetries: 3, InitialDelay: initial, Multiplier: multiplier}

			var delays []time.Duration
			obs := func(label string, attempt int, class Class, delay time.Duration, err error) {
				delays = append(delays, delay)
			}

			_, err := Do(context.Background(), policy, "op",
				func(context.Context) (string, error) {
					return "", &statusError{code: tt.code}
				}, obs)

			require.Error(t, err)
			assert.Equal(t, tt.wantDelays, delays)
		})
	}
}

func TestDo_ObserverSeesIntermediateFailures(t *testing.T) {
	t.Parallel()

	underlying := &statusError{code: 503}

	type observed struct {
		label   string
		attempt int
		class   Class
	}
	var seen []observed

	_, err := Do(context.Background(), fastPolicy(2), "fetch_tbs",
		func(context.Context) (string, error) {
			return "", underlying
		},
		func(label string, attempt int, class Class, delay time.Duration, err error) {
			assert.ErrorIs(t, err, underlying)
			seen = append(seen, observed{label, attempt, class})
		})

	require.Error(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, observed{"fetch_tbs", 1, ClassRetryable}, seen[0])
	assert.Equal(t, observed{"fetch_tbs", 2, ClassRetryable}, seen[1])
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, &Policy{MaxRetries: 5, InitialDelay: time.Minute, Multiplier: 2}, "op",
		func(context.Context) (string, error) {
			calls++
			cancel()
			return "", &statusError{code: 500}
		}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextAlreadyCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, fastPolicy(3), "op",
		func(context.Context) (string, error) {
			calls++
			return "", nil
		}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDo_ErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := errors.New("connection refused")

	_, err := Do(context.Background(), fastPolicy(1), "validate",
		func(context.Context) (string, error) {
			return "", underlying
		}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "validate")
	assert.Contains(t, err.Error(), "2 attempt(s)")
}

func TestDo_IndependentStateAcrossConcurrentCalls(t *testing.T) {
	t.Parallel()

	// Two concurrent invocations must each make their own full attempt
	// sequence; shared state would corrupt one of the counters.
	policy := fastPolicy(3)

	type outcome struct {
		calls int
	}
	results := make(chan outcome, 2)

	for i := 0; i < 2; i++ {
		go func() {
			calls := 0
			_, _ = Do(context.Background(), policy, "op",
				func(context.Context) (string, error) {
					calls++
					return "", &statusError{code: 500}
				}, nil)
			results <- outcome{calls: calls}
		}()
	}

	for i := 0; i < 2; i++ {
		got := <-results
		assert.Equal(t, 4, got.calls)
	}
}

// fastPolicy returns a policy with millisecond delays to keep tests quick.
func fastPolicy(maxRetries int) *Policy {
	return &Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
	}
}
