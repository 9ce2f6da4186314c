package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/schedule"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/state"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/supervisor"
)

type fakeProviders struct {
	mu   sync.Mutex
	set  schedule.Set
	mode state.Mode
}

func (f *fakeProviders) ScheduleSet() schedule.Set {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}

func (f *fakeProviders) Mode() state.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

type fakeSupervisor struct {
	mu       sync.Mutex
	state    supervisor.RunState
	stateErr error
	startErr error
	stopErr  error
	starts   int
	stops    int
	block    chan struct{} // when set, IsActive blocks until closed
}

func (f *fakeSupervisor) IsActive(ctx context.Context) (supervisor.RunState, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.stateErr
}

func (f *fakeSupervisor) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.state = supervisor.StateActive
	return nil
}

func (f *fakeSupervisor) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.state = supervisor.StateInactive
	return nil
}

func (f *fakeSupervisor) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

// alwaysOn is a schedule that always wants the service running.
func alwaysOn() schedule.Set {
	return schedule.Set{Rules: []schedule.Rule{
		{ID: "always", Kind: schedule.KindDaily, Start: 0, End: 0, Enabled: true}, // end <= start: full wrap
	}}
}

func TestReconcile_StartsWhenDesiredRunning(t *testing.T) {
	sup := &fakeSupervisor{state: supervisor.StateInactive}
	p := &fakeProviders{mode: state.ModeAuto, set: alwaysOn()}
	r := New(p, p, sup)

	res := r.Reconcile(t.Context())
	require.Equal(t, ActionStart, res.Action)
	require.NoError(t, res.Err)

	starts, stops := sup.counts()
	require.Equal(t, 1, starts)
	require.Equal(t, 0, stops)
}

func TestReconcile_StopsWhenDesiredStopped(t *testing.T) {
	sup := &fakeSupervisor{state: supervisor.StateActive}
	p := &fakeProviders{mode: state.ModeAuto, set: schedule.Set{}}
	r := New(p, p, sup)

	res := r.Reconcile(t.Context())
	require.Equal(t, ActionStop, res.Action)

	starts, stops := sup.counts()
	require.Equal(t, 0, starts)
	require.Equal(t, 1, stops)
}

func TestReconcile_Idempotent(t *testing.T) {
	sup := &fakeSupervisor{state: supervisor.StateInactive}
	p := &fakeProviders{mode: state.ModeAuto, set: alwaysOn()}
	r := New(p, p, sup)

	first := r.Reconcile(t.Context())
	require.Equal(t, ActionStart, first.Action)

	// Fake supervisor reports active after the start; the second pass with
	// unchanged inputs must issue nothing.
	second := r.Reconcile(t.Context())
	require.Equal(t, ActionNone, second.Action)

	starts, stops := sup.counts()
	require.Equal(t, 1, starts)
	require.Equal(t, 0, stops)
}

func TestReconcile_ConvergedNoAction(t *testing.T) {
	t.Run("running and should run", func(t *testing.T) {
		sup := &fakeSupervisor{state: supervisor.StateActive}
		p := &fakeProviders{mode: state.ModeManualOn}
		res := New(p, p, sup).Reconcile(t.Context())
		require.Equal(t, ActionNone, res.Action)
	})

	t.Run("stopped and should not run", func(t *testing.T) {
		sup := &fakeSupervisor{state: supervisor.StateInactive}
		p := &fakeProviders{mode: state.ModeManualOff}
		res := New(p, p, sup).Reconcile(t.Context())
		require.Equal(t, ActionNone, res.Action)
	})
}

func TestReconcile_ManualModesOverrideSchedule(t *testing.T) {
	t.Run("manual-on starts despite empty schedule", func(t *testing.T) {
		sup := &fakeSupervisor{state: supervisor.StateInactive}
		p := &fakeProviders{mode: state.ModeManualOn, set: schedule.Set{}}
		res := New(p, p, sup).Reconcile(t.Context())
		require.Equal(t, ActionStart, res.Action)
	})

	t.Run("manual-off stops despite matching schedule", func(t *testing.T) {
		sup := &fakeSupervisor{state: supervisor.StateActive}
		p := &fakeProviders{mode: state.ModeManualOff, set: alwaysOn()}
		res := New(p, p, sup).Reconcile(t.Context())
		require.Equal(t, ActionStop, res.Action)
	})
}

func TestReconcile_UnknownObservationTreatedAsInactive(t *testing.T) {
	sup := &fakeSupervisor{state: supervisor.StateUnknown, stateErr: errors.New("dbus timeout")}
	p := &fakeProviders{mode: state.ModeManualOn}
	res := New(p, p, sup).Reconcile(t.Context())

	require.Equal(t, ActionStart, res.Action)
	starts, _ := sup.counts()
	require.Equal(t, 1, starts)
}

func TestReconcile_SupervisorFailureNotFatal(t *testing.T) {
	sup := &fakeSupervisor{state: supervisor.StateInactive, startErr: errors.New("unit not found")}
	p := &fakeProviders{mode: state.ModeManualOn}
	r := New(p, p, sup)

	res := r.Reconcile(t.Context())
	require.Equal(t, ActionStart, res.Action)
	require.Error(t, res.Err)

	// Unconverged: the next pass retries the start.
	res = r.Reconcile(t.Context())
	require.Equal(t, ActionStart, res.Action)
	starts, _ := sup.counts()
	require.Equal(t, 2, starts)
}

func TestReconcile_OverlappingInvocationSkipped(t *testing.T) {
	block := make(chan struct{})
	sup := &fakeSupervisor{state: supervisor.StateActive, block: block}
	p := &fakeProviders{mode: state.ModeManualOn}
	r := New(p, p, sup)

	done := make(chan Result, 1)
	go func() { done <- r.Reconcile(context.Background()) }()

	// Wait until the first pass is inside the supervisor observation.
	require.Eventually(t, func() bool {
		return r.inFlight.Load()
	}, time.Second, 5*time.Millisecond)

	second := r.Reconcile(t.Context())
	require.True(t, second.Skipped)

	close(block)
	first := <-done
	require.False(t, first.Skipped)
	require.Equal(t, ActionNone, first.Action)
}

func TestDesiredState_AutoFollowsSchedule(t *testing.T) {
	p := &fakeProviders{mode: state.ModeAuto, set: schedule.Set{Rules: []schedule.Rule{
		{ID: "hours", Kind: schedule.KindDaily, Start: 9 * 60, End: 17 * 60, Enabled: true},
	}}}
	r := New(p, p, &fakeSupervisor{})

	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)
	_, desired := r.DesiredState(day.Add(10 * time.Hour))
	require.Equal(t, DesiredRunning, desired)
	_, desired = r.DesiredState(day.Add(20 * time.Hour))
	require.Equal(t, DesiredStopped, desired)
}
