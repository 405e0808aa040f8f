package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/medsurge/internal/domain/auth"
)

type countCall struct {
	name string
	tags map[string]string
}

type fakeSink struct {
	counts  []countCall
	timings []string
}

func (f *fakeSink) Count(name string, _ int64, tags map[string]string) {
	f.counts = append(f.counts, countCall{name: name, tags: tags})
}

func (f *fakeSink) Timing(name string, _ time.Duration, _ map[string]string) {
	f.timings = append(f.timings, name)
}

func TestStatsdRecorder_GatewayCallTagsErrorClass(t *testing.T) {
	sink := &fakeSink{}
	rec := NewStatsdRecorder(sink)

	rec.GatewayCall("login", 20*time.Millisecond, domainauth.InvalidCredentials("nope"))
	rec.GatewayCall("validate", 0, nil)

	require.Len(t, sink.counts, 2)
	assert.Equal(t, "gateway.call", sink.counts[0].name)
	assert.Equal(t, map[string]string{
		"op":          "login",
		"result":      ResultError,
		"error_class": string(domainauth.KindInvalidCredentials),
	}, sink.counts[0].tags)
	assert.Equal(t, ResultSuccess, sink.counts[1].tags["result"])
	assert.Equal(t, []string{"gateway.duration"}, sink.timings)
}

func TestStatsdRecorder_NilSinkIsSafe(t *testing.T) {
	rec := NewStatsdRecorder(nil)
	rec.SessionTransition(domainauth.PhaseLoading, domainauth.PhaseAuthenticated, TriggerStartup)
	rec.GatewayCall("login", time.Second, errors.New("boom"))
	rec.StaleResolution(TriggerStartup)
	rec.Invalidation("http_401")
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	rec.SessionTransition(domainauth.PhaseLoading, domainauth.PhaseAuthenticated, TriggerLogin)
	rec.SessionTransition(domainauth.PhaseLoading, domainauth.PhaseAuthenticated, TriggerLogin)
	rec.Invalidation("http_401")
	rec.StaleResolution(TriggerStartup)
	rec.GatewayCall("validate", 5*time.Millisecond, domainauth.Unauthorized(""))

	assert.InDelta(t, 2, testutil.ToFloat64(rec.transitions.WithLabelValues("loading", "authenticated", TriggerLogin)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.invalidations.WithLabelValues("http_401")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.stale.WithLabelValues(TriggerStartup)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.gatewayCalls.WithLabelValues("validate", ResultError, "unauthorized")), 0)

	_, err = NewPrometheusRecorder(reg)
	require.Error(t, err, "registering twice must fail")
}
