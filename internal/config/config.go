package config

import (
	"fmt"
	"os"
	"strings"
)

// Config is the root configuration.
type Config struct {
	// Credential is the BDUSS session credential. Treated as a secret:
	// never logged, never mutated.
	Credential string `yaml:"credential,omitempty"`

	// CredentialFile is a file to read the credential from instead. The
	// file takes precedence over the inline value, which lets a rotated
	// credential be picked up by the watcher.
	CredentialFile string `yaml:"credentialFile,omitempty"`

	// Log configures logging.
	Log LogConfig `yaml:"log,omitempty"`

	// MetricsListen is an optional address serving Prometheus metrics
	// during a run, e.g. ":9090". Empty disables the listener.
	MetricsListen string `yaml:"metricsListen,omitempty"`

	// Client configures the platform client.
	Client ClientConfig `yaml:"client,omitempty"`

	// Signer configures the check-in run.
	Signer SignerConfig `yaml:"signer,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level,omitempty"`

	// Format is the log format (json, console).
	Format string `yaml:"format,omitempty"`

	// Output is the log destination (stdout, stderr).
	Output string `yaml:"output,omitempty"`
}

// ClientConfig configures the platform client.
type ClientConfig struct {
	// Timeout is the per-request transport timeout.
	Timeout Duration `yaml:"timeout,omitempty"`

	// MaxRetries is the maximum retry attempts per operation.
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// InitialDelay seeds the retry backoff escalation.
	InitialDelay Duration `yaml:"initialDelay,omitempty"`

	// Multiplier is the retry backoff factor.
	Multiplier float64 `yaml:"multiplier,omitempty"`

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig `yaml:"breaker,omitempty"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// Enabled enables the circuit breaker.
	Enabled bool `yaml:"enabled,omitempty"`

	// Threshold is the request count before the failure ratio is evaluated.
	Threshold int `yaml:"threshold,omitempty"`

	// Timeout is how long the breaker stays open before probing.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// SignerConfig configures the check-in run.
type SignerConfig struct {
	// Concurrency is the number of forums checked in concurrently.
	// Default is 1.
	Concurrency int `yaml:"concurrency,omitempty"`

	// RatePerSecond paces check-in requests across all workers. Zero
	// disables client-side pacing.
	RatePerSecond float64 `yaml:"ratePerSecond,omitempty"`

	// Burst is the pacing burst size. Default is 1 when pacing is enabled.
	Burst int `yaml:"burst,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Client.MaxRetries < 0 {
		return fmt.Errorf("client.maxRetries must not be negative, got %d", c.Client.MaxRetries)
	}
	if c.Client.Multiplier < 0 {
		return fmt.Errorf("client.multiplier must not be negative, got %v", c.Client.Multiplier)
	}
	if c.Signer.Concurrency < 0 {
		return fmt.Errorf("signer.concurrency must not be negative, got %d", c.Signer.Concurrency)
	}
	if c.Signer.RatePerSecond < 0 {
		return fmt.Errorf("signer.ratePerSecond must not be negative, got %v", c.Signer.RatePerSecond)
	}
	return nil
}

// ResolveCredential returns the effective credential: the credential file
// when configured, the inline value otherwise.
func (c *Config) ResolveCredential() (string, error) {
	if c.CredentialFile != "" {
		data, err := os.ReadFile(c.CredentialFile)
		if err != nil {
			return "", fmt.Errorf("failed to read credential file: %w", err)
		}
		credential := strings.TrimSpace(string(data))
		if credential == "" {
			return "", fmt.Errorf("credential file %s is empty", c.CredentialFile)
		}
		return credential, nil
	}
	if c.Credential == "" {
		return "", fmt.Errorf("no credential configured")
	}
	return c.Credential, nil
}
