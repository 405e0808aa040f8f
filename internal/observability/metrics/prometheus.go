package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	domainauth "github.com/target/medsurge/internal/domain/auth"
	obserrors "github.com/target/medsurge/internal/observability/errors"
)

// PrometheusRecorder exposes observations as Prometheus collectors.
type PrometheusRecorder struct {
	transitions   *prometheus.CounterVec
	gatewayCalls  *prometheus.CounterVec
	gatewayTiming *prometheus.HistogramVec
	stale         *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medsurge",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions by source phase, target phase and trigger.",
		}, []string{"from", "to", "trigger"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medsurge",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Identity gateway calls by operation, result and error class.",
		}, []string{"op", "result", "error_class"}),
		gatewayTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medsurge",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Identity gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medsurge",
			Subsystem: "session",
			Name:      "stale_resolutions_total",
			Help:      "Identity resolutions discarded because a newer one was issued.",
		}, []string{"trigger"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medsurge",
			Subsystem: "session",
			Name:      "invalidations_total",
			Help:      "Forced logouts received from the invalidation bus.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{r.transitions, r.gatewayCalls, r.gatewayTiming, r.stale, r.invalidations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) SessionTransition(from, to domainauth.Phase, trigger string) {
	r.transitions.WithLabelValues(string(from), string(to), trigger).Inc()
}

func (r *PrometheusRecorder) GatewayCall(op string, d time.Duration, err error) {
	r.gatewayCalls.WithLabelValues(op, resultOf(err), obserrors.Classify(err)).Inc()
	if d > 0 {
		r.gatewayTiming.WithLabelValues(op).Observe(d.Seconds())
	}
}

func (r *PrometheusRecorder) StaleResolution(trigger string) {
	r.stale.WithLabelValues(trigger).Inc()
}

func (r *PrometheusRecorder) Invalidation(reason string) {
	r.invalidations.WithLabelValues(reason).Inc()
}

var _ Recorder = (*PrometheusRecorder)(nil)
