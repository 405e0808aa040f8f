package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/target/medsurge/config"
	"github.com/target/medsurge/internal/observability/metrics"
	"github.com/target/medsurge/internal/observability/statsd"
)

// Telemetry bundles the metrics recorder with what the server exposes.
type Telemetry struct {
	Recorder metrics.Recorder
	// Handler serves /metrics for the Prometheus backend; nil otherwise.
	Handler http.Handler
	Close   func() error
}

// BuildTelemetry creates the recorder for the configured metrics backend.
// A statsd agent that cannot be dialed degrades to no metrics.
func BuildTelemetry(ctx context.Context, cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (Telemetry, error) {
	noop := Telemetry{Recorder: metrics.Nop{}, Close: func() error { return nil }}

	switch cfg.Backend {
	case config.MetricsBackendStatsd:
		client, err := statsd.NewClient(ctx, statsd.Config{
			Address: cfg.StatsdAddress,
			Prefix:  cfg.Prefix,
			Logger:  logger,
		})
		if err != nil {
			logger.WarnContext(ctx, "statsd disabled", "error", err)
			return noop, nil
		}
		return Telemetry{Recorder: metrics.NewStatsdRecorder(client), Close: client.Close}, nil

	case config.MetricsBackendPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := metrics.NewPrometheusRecorder(reg)
		if err != nil {
			return Telemetry{}, fmt.Errorf("register session metrics: %w", err)
		}
		return Telemetry{
			Recorder: rec,
			Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			Close:    func() error { return nil },
		}, nil

	default:
		return noop, nil
	}
}
