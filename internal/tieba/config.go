package tieba

import (
	"fmt"
	"time"
)

// Default client constants.
const (
	// DefaultTimeout is the default per-request transport timeout.
	DefaultTimeout = 10 * time.Second

	// mobileUserAgent is the client identity sent with credential validation
	// and forum enumeration. The mobile endpoints reject desktop identities.
	mobileUserAgent = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"

	// desktopUserAgent is the client identity sent with the check-in request.
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Endpoints holds the platform endpoint URLs. Overridable for tests.
type Endpoints struct {
	// MoIndex serves login state, the user identifier, and the followed
	// forum list.
	MoIndex string

	// Tbs serves the session-bound security token.
	Tbs string

	// Sign accepts the daily check-in.
	Sign string
}

// DefaultEndpoints returns the production platform endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		MoIndex: "https://tieba.baidu.com/mo/q/newmoindex",
		Tbs:     "http://tieba.baidu.com/dc/common/tbs",
		Sign:    "https://tieba.baidu.com/sign/add",
	}
}

// BreakerConfig configures the circuit breaker guarding the platform.
type BreakerConfig struct {
	// Enabled enables the circuit breaker.
	Enabled bool

	// Threshold is the minimum number of requests before the failure ratio
	// is evaluated. Default is 5.
	Threshold int

	// Timeout is how long the breaker stays open before probing.
	// Default is 60s.
	Timeout time.Duration
}

// GetThreshold returns the effective request threshold.
func (c *BreakerConfig) GetThreshold() int {
	if c == nil || c.Threshold <= 0 {
		return 5
	}
	return c.Threshold
}

// GetTimeout returns the effective open-state timeout.
func (c *BreakerConfig) GetTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

// Config represents Tieba client configuration.
type Config struct {
	// Timeout is the per-request transport timeout.
	Timeout time.Duration

	// MaxRetries is the maximum retry attempts per operation.
	MaxRetries int

	// InitialDelay seeds the retry backoff escalation.
	InitialDelay time.Duration

	// Multiplier is the retry backoff factor.
	Multiplier float64

	// Breaker configures the circuit breaker.
	Breaker *BreakerConfig
}

// GetTimeout returns the effective transport timeout.
func (c *Config) GetTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Validate validates the client configuration.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must not be negative, got %d", c.MaxRetries)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initialDelay must not be negative, got %s", c.InitialDelay)
	}
	if c.Multiplier < 0 {
		return fmt.Errorf("multiplier must not be negative, got %v", c.Multiplier)
	}
	return nil
}
