package metrics

import "time"

// DecisionLabel enumerates gateway dispatch outcomes for counters.
type DecisionLabel string

const (
	DecisionForwarded      DecisionLabel = "forwarded"
	DecisionBlockedOff     DecisionLabel = "blocked_manual_off"
	DecisionBlockedStart   DecisionLabel = "blocked_starting"
	DecisionBlockedOutside DecisionLabel = "blocked_scheduled_off"
)

// Recorder defines observability hooks for the gateway and reconciler.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncDispatchDecision(decision DecisionLabel)
	ObserveReconcileDuration(d time.Duration)
	IncReconcileAction(action, outcome string)
	SetPushSubscribers(n int)
	IncConfigReload(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncDispatchDecision(DecisionLabel)        {}
func (NoopRecorder) ObserveReconcileDuration(time.Duration)   {}
func (NoopRecorder) IncReconcileAction(string, string)        {}
func (NoopRecorder) SetPushSubscribers(int)                   {}
func (NoopRecorder) IncConfigReload(bool)                     {}
