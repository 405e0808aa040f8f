// Package metrics records session lifecycle metrics to a configured backend.
package metrics

import (
	"time"

	domainauth "github.com/target/medsurge/internal/domain/auth"
	obserrors "github.com/target/medsurge/internal/observability/errors"
	"github.com/target/medsurge/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Trigger names what caused a session transition.
const (
	TriggerStartup      = "startup"
	TriggerLogin        = "login"
	TriggerLogout       = "logout"
	TriggerInvalidation = "invalidation"
	TriggerSync         = "sync"
	TriggerRefresh      = "refresh"
)

// Recorder receives session lifecycle observations.
type Recorder interface {
	SessionTransition(from, to domainauth.Phase, trigger string)
	GatewayCall(op string, d time.Duration, err error)
	StaleResolution(trigger string)
	Invalidation(reason string)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) SessionTransition(domainauth.Phase, domainauth.Phase, string) {}
func (Nop) GatewayCall(string, time.Duration, error) {}
func (Nop) StaleResolution(string) {}
func (Nop) Invalidation(string) {}

// StatsdRecorder emits observations through a statsd.Sink.
type StatsdRecorder struct {
	Sink statsd.Sink
}

// NewStatsdRecorder wraps sink. A nil sink yields a recorder that drops everything.
func NewStatsdRecorder(sink statsd.Sink) *StatsdRecorder {
	return &StatsdRecorder{Sink: sink}
}

func (r *StatsdRecorder) SessionTransition(from, to domainauth.Phase, trigger string) {
	if r == nil || r.Sink == nil {
		return
	}
	r.Sink.Count("session.transition", 1, map[string]string{
		"from":    string(from),
		"to":      string(to),
		"trigger": trigger,
	})
}

func (r *StatsdRecorder) GatewayCall(op string, d time.Duration, err error) {
	if r == nil || r.Sink == nil {
		return
	}
	tags := map[string]string{"op": op, "result": resultOf(err)}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	r.Sink.Count("gateway.call", 1, tags)
	if d > 0 {
		r.Sink.Timing("gateway.duration", d, map[string]string{"op": op})
	}
}

func (r *StatsdRecorder) StaleResolution(trigger string) {
	if r == nil || r.Sink == nil {
		return
	}
	r.Sink.Count("session.stale_resolution", 1, map[string]string{"trigger": trigger})
}

func (r *StatsdRecorder) Invalidation(reason string) {
	if r == nil || r.Sink == nil {
		return
	}
	r.Sink.Count("session.invalidation", 1, map[string]string{"reason": reason})
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

var (
	_ Recorder = Nop{}
	_ Recorder = (*StatsdRecorder)(nil)
)
