// Package config provides YAML configuration loading, validation, and
// hot-reload watching for the check-in client.
package config
