// Package reconcile converges the kiosk service's actual run-state to the
// desired one derived from the operating mode and the schedule.
package reconcile

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/audit"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/daemon/events"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/logfields"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/metrics"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/schedule"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/state"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/supervisor"
)

// Desired is the run-state the reconciler wants the kiosk service in.
type Desired string

const (
	DesiredRunning Desired = "running"
	DesiredStopped Desired = "stopped"
)

// Action is the corrective command issued by a pass.
type Action string

const (
	ActionNone  Action = "none"
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// AuditLog records issued actions. Satisfied by *audit.SQLiteLog.
type AuditLog interface {
	Append(ctx context.Context, e audit.Entry) error
}

// Result describes the outcome of one reconciliation pass.
type Result struct {
	PassID   string
	Mode     state.Mode
	Observed supervisor.RunState
	Desired  Desired
	Action   Action
	Err      error // supervisor failure; state left unreconciled, retried next pass
	Skipped  bool  // another pass was already in flight
	Duration time.Duration
}

// Reconciler issues at most one start/stop command per pass. It is safe to
// trigger from multiple sources (periodic job, config watcher, CLI): a pass
// already in flight makes concurrent invocations a no-op.
type Reconciler struct {
	schedules state.ScheduleProvider
	modes     state.ModeProvider
	sup       supervisor.Supervisor
	auditLog  AuditLog
	bus       *events.Bus
	recorder  metrics.Recorder

	now      func() time.Time
	inFlight atomic.Bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithAuditLog enables persistent action logging.
func WithAuditLog(log AuditLog) Option {
	return func(r *Reconciler) { r.auditLog = log }
}

// WithBus publishes pass results on the daemon event bus.
func WithBus(bus *events.Bus) Option {
	return func(r *Reconciler) { r.bus = bus }
}

// WithRecorder wires metrics.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Reconciler) { r.recorder = rec }
}

// New creates a reconciler over the given providers and supervisor.
func New(schedules state.ScheduleProvider, modes state.ModeProvider, sup supervisor.Supervisor, opts ...Option) *Reconciler {
	r := &Reconciler{
		schedules: schedules,
		modes:     modes,
		sup:       sup,
		recorder:  metrics.NoopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DesiredState resolves the desired run-state from the current mode and
// schedule without touching the supervisor.
func (r *Reconciler) DesiredState(now time.Time) (state.Mode, Desired) {
	mode := r.modes.Mode()
	switch mode {
	case state.ModeManualOn:
		return mode, DesiredRunning
	case state.ModeManualOff:
		return mode, DesiredStopped
	}
	if schedule.ShouldRun(r.schedules.ScheduleSet(), now) {
		return mode, DesiredRunning
	}
	return mode, DesiredStopped
}

// Reconcile runs a single pass: read mode and schedule, observe the service,
// and issue at most one corrective command. It never returns an error to the
// caller; supervisor failures are logged, recorded in the result, and retried
// on the next pass.
func (r *Reconciler) Reconcile(ctx context.Context) Result {
	if !r.inFlight.CompareAndSwap(false, true) {
		slog.Debug("Reconciliation already in flight, skipping")
		return Result{Skipped: true}
	}
	defer r.inFlight.Store(false)

	start := r.now()
	res := Result{PassID: uuid.NewString()}
	res.Mode, res.Desired = r.DesiredState(start)

	observed, err := r.sup.IsActive(ctx)
	if err != nil {
		// Unknown is treated as inactive below (fail-closed); keep going.
		slog.Warn("Failed to observe service state",
			logfields.PassID(res.PassID), logfields.Error(err))
	}
	res.Observed = observed

	running := observed == supervisor.StateActive

	switch {
	case res.Desired == DesiredRunning && !running:
		res.Action = ActionStart
		res.Err = r.sup.Start(ctx)
	case res.Desired == DesiredStopped && running:
		res.Action = ActionStop
		res.Err = r.sup.Stop(ctx)
	default:
		res.Action = ActionNone
	}

	res.Duration = r.now().Sub(start)
	r.record(ctx, res)
	return res
}

func (r *Reconciler) record(ctx context.Context, res Result) {
	outcome := "ok"
	if res.Err != nil {
		outcome = "failed"
	}

	if res.Action == ActionNone {
		slog.Debug("Reconciliation pass converged, no action",
			logfields.PassID(res.PassID),
			logfields.Mode(string(res.Mode)),
			logfields.Observed(string(res.Observed)),
			logfields.Desired(string(res.Desired)))
	} else if res.Err != nil {
		slog.Error("Reconcile action failed, will retry next pass",
			logfields.PassID(res.PassID),
			logfields.Mode(string(res.Mode)),
			logfields.Observed(string(res.Observed)),
			logfields.Desired(string(res.Desired)),
			logfields.Action(string(res.Action)),
			logfields.Error(res.Err))
	} else {
		slog.Info("Reconcile action issued",
			logfields.PassID(res.PassID),
			logfields.Mode(string(res.Mode)),
			logfields.Observed(string(res.Observed)),
			logfields.Desired(string(res.Desired)),
			logfields.Action(string(res.Action)))
	}

	r.recorder.ObserveReconcileDuration(res.Duration)
	r.recorder.IncReconcileAction(string(res.Action), outcome)

	if r.auditLog != nil && res.Action != ActionNone {
		entry := audit.Entry{
			PassID:    res.PassID,
			Timestamp: r.now(),
			Mode:      string(res.Mode),
			Observed:  string(res.Observed),
			Desired:   string(res.Desired),
			Action:    string(res.Action),
			Outcome:   outcome,
		}
		if err := r.auditLog.Append(ctx, entry); err != nil {
			slog.Error("Failed to append audit entry",
				logfields.PassID(res.PassID), logfields.Error(err))
		}
	}

	if r.bus != nil {
		if res.Action != ActionNone {
			_ = r.bus.Publish(ctx, events.ServiceStateChanged{
				PassID:    res.PassID,
				Previous:  string(res.Observed),
				Desired:   string(res.Desired),
				Action:    string(res.Action),
				Succeeded: res.Err == nil,
				Timestamp: r.now(),
			})
		}
		_ = r.bus.Publish(ctx, events.ReconcileCompleted{
			PassID:   res.PassID,
			Mode:     string(res.Mode),
			Desired:  string(res.Desired),
			Observed: string(res.Observed),
			Action:   string(res.Action),
			Duration: res.Duration,
		})
	}
}
