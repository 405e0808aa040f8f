package config

import (
	"fmt"
	"log/slog"
	"strings"
)

const defaultMetricsPrefix = "medsurge"

// MetricsBackend selects where session metrics go.
type MetricsBackend string

const (
	MetricsBackendNone       MetricsBackend = "none"
	MetricsBackendStatsd     MetricsBackend = "statsd"
	MetricsBackendPrometheus MetricsBackend = "prometheus"
)

// UnmarshalText implements encoding.TextUnmarshaler for MetricsBackend.
func (b *MetricsBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "", "none":
		*b = MetricsBackendNone
	case "statsd", "prometheus":
		*b = MetricsBackend(v)
	default:
		return fmt.Errorf("invalid MetricsBackend: %q (valid options: none, statsd, prometheus)", v)
	}
	return nil
}

// ObservabilityConfig groups logging and metrics configuration.
type ObservabilityConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Metrics  ObservabilityMetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Metrics.Sanitize()
}

// SlogLevel maps LogLevel onto slog; unknown values mean info.
func (c *ObservabilityConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ObservabilityMetricsConfig controls emission of session metrics.
type ObservabilityMetricsConfig struct {
	Backend       MetricsBackend `env:"OBSERVABILITY_METRICS_BACKEND"        envDefault:"none"`
	StatsdAddress string         `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string         `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"medsurge"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = MetricsBackendNone
	}
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.Backend == MetricsBackendStatsd && c.StatsdAddress == "" {
		c.Backend = MetricsBackendNone
	}
	if c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), "."); c.Prefix == "" {
		c.Prefix = defaultMetricsPrefix
	}
}
