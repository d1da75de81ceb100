package tieba

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tiebatools/autosign/internal/observability"
	"github.com/tiebatools/autosign/internal/retry"
)

// Operation labels carried by retry failures and metrics.
const (
	opAuthenticate = "authenticate"
	opListForums   = "list_forums"
	opFetchTbs     = "fetch_tbs"
	opSignIn       = "sign_in"
)

// Client provides the four platform operations.
type Client interface {
	// Authenticate validates the credential and returns the user identity.
	Authenticate(ctx context.Context, credential string) (*UserInfo, error)

	// ListForums returns the forums the user follows. An empty list is not
	// an error.
	ListForums(ctx context.Context, credential string) ([]Forum, error)

	// FetchTbs returns a fresh session-bound security token. No caching:
	// every call performs a network round trip.
	FetchTbs(ctx context.Context, credential string) (string, error)

	// SignIn performs the daily check-in for one forum and returns the raw
	// response payload for the caller to interpret. The index is kept for
	// caller-side reporting only.
	SignIn(ctx context.Context, credential, forumName, tbs string, index int) (json.RawMessage, error)
}

// UserInfo is the identity of a validated credential. Immutable once
// constructed.
type UserInfo struct {
	Code       int64
	Credential string
	UserID     string
	Valid      bool
	DeviceID   string
}

// Forum is one followed forum as returned by the platform.
type Forum struct {
	ForumID   int64  `json:"forum_id"`
	ForumName string `json:"forum_name"`
	LevelID   int    `json:"level_id"`
	IsSign    int    `json:"is_sign"`
}

// client implements the Client interface.
type client struct {
	httpc     *http.Client
	endpoints Endpoints
	policy    *retry.Policy
	breaker   *gobreaker.CircuitBreaker
	logger    observability.Logger
	observer  retry.Observer
}

// Option is a functional option for configuring the client.
type Option func(*client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *client) {
		c.httpc = httpc
	}
}

// WithEndpoints overrides the platform endpoints.
func WithEndpoints(e Endpoints) Option {
	return func(c *client) {
		c.endpoints = e
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(c *client) {
		c.policy = p
	}
}

// WithObserver sets an additional observer for retry attempts. It is invoked
// after the built-in logging and metrics.
func WithObserver(obs retry.Observer) Option {
	return func(c *client) {
		c.observer = obs
	}
}

// New creates a new Tieba client.
func New(cfg *Config, logger observability.Logger, opts ...Option) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	c := &client{
		httpc:     &http.Client{Timeout: cfg.GetTimeout()},
		endpoints: DefaultEndpoints(),
		logger:    logger.With(observability.String("component", "tieba")),
	}

	if cfg != nil {
		c.policy = &retry.Policy{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.InitialDelay,
			Multiplier:   cfg.Multiplier,
		}
		if cfg.Breaker != nil && cfg.Breaker.Enabled {
			c.breaker = newBreaker(cfg.Breaker, c.logger)
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// execute runs one operation through the retry policy and, when configured,
// the circuit breaker. All four operations share this path so the retry
// contract is uniformly enforced.
func execute[T any](ctx context.Context, c *client, op string, fn func(context.Context) (T, error)) (T, error) {
	run := func() (T, error) {
		return retry.Do(ctx, c.policy, op, fn, c.retryObserver())
	}

	if c.breaker == nil {
		return run()
	}

	var zero T
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return run()
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}

// retryObserver surfaces intermediate failures, which are otherwise swallowed
// by the retry loop, as advisory warnings and metrics.
func (c *client) retryObserver() retry.Observer {
	return func(label string, attempt int, class retry.Class, delay time.Duration, err error) {
		tiebaRetriesTotal.WithLabelValues(label, class.String()).Inc()
		c.logger.Warn("retrying operation",
			observability.String("operation", label),
			observability.Int("attempt", attempt),
			observability.String("class", class.String()),
			observability.Duration("backoff", delay),
			observability.Error(err),
		)
		if c.observer != nil {
			c.observer(label, attempt, class, delay, err)
		}
	}
}

// apiRequest describes one outbound request attempt.
type apiRequest struct {
	method     string
	url        string
	userAgent  string
	credential string
	form       string // urlencoded body, empty for GET
}

// do performs a single request attempt and returns the response body.
// Non-2xx responses become an APIError carrying the status code; transport
// failures become an APIError without one.
func (c *client) do(ctx context.Context, op string, r apiRequest) ([]byte, error) {
	var body io.Reader
	if r.form != "" {
		body = strings.NewReader(r.form)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, NewAPIError(op, err)
	}

	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Cookie", "BDUSS="+r.credential)
	if r.form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	tiebaRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		tiebaRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return nil, NewAPIError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	tiebaRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewAPIErrorWithStatus(op, resp.StatusCode, ErrUpstreamStatus)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewAPIError(op, err)
	}

	return data, nil
}

// Ensure implementations satisfy the interface.
var _ Client = (*client)(nil)
