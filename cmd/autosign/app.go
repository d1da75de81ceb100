package main

import (
	"fmt"
	"os"

	"github.com/tiebatools/autosign/internal/config"
	"github.com/tiebatools/autosign/internal/observability"
	"github.com/tiebatools/autosign/internal/tieba"
)

// credentialEnvVar is consulted when neither the flag nor the config
// provides a credential.
const credentialEnvVar = "AUTOSIGN_BDUSS"

// app bundles the pieces every subcommand needs.
type app struct {
	cfg        *config.Config
	logger     observability.Logger
	client     tieba.Client
	credential string
}

// newApp loads the configuration, resolves the credential and builds the
// platform client.
func newApp() (*app, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	observability.SetGlobalLogger(logger)

	cred, err := resolveCredential(cfg)
	if err != nil {
		return nil, err
	}

	client, err := tieba.New(clientConfig(cfg), logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		credential: cred,
	}, nil
}

// resolveCredential returns the effective credential. Precedence: the
// --bduss flag, then the AUTOSIGN_BDUSS environment variable, then the
// configuration.
func resolveCredential(cfg *config.Config) (string, error) {
	if credential != "" {
		return credential, nil
	}
	if env := os.Getenv(credentialEnvVar); env != "" {
		return env, nil
	}
	cred, err := cfg.ResolveCredential()
	if err != nil {
		return "", fmt.Errorf("no credential: set --bduss, %s or the config file: %w", credentialEnvVar, err)
	}
	return cred, nil
}

// clientConfig maps the file configuration onto the client configuration.
func clientConfig(cfg *config.Config) *tieba.Config {
	out := &tieba.Config{
		Timeout:      cfg.Client.Timeout.Duration(),
		MaxRetries:   cfg.Client.MaxRetries,
		InitialDelay: cfg.Client.InitialDelay.Duration(),
		Multiplier:   cfg.Client.Multiplier,
	}
	if cfg.Client.Breaker.Enabled {
		out.Breaker = &tieba.BreakerConfig{
			Enabled:   true,
			Threshold: cfg.Client.Breaker.Threshold,
			Timeout:   cfg.Client.Breaker.Timeout.Duration(),
		}
	}
	return out
}

// close flushes buffered log entries.
func (a *app) close() {
	_ = a.logger.Sync()
}
