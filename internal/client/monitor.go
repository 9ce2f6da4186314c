// Package client implements the kiosk-side recovery monitor: it watches the
// gateway's boot identifier over polling and push, shows an offline overlay
// on failures, and forces exactly one reload per detected backend restart.
package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/logfields"
)

// State is the monitor's connection state.
type State string

const (
	StateOnline     State = "online"
	StateOffline    State = "offline"
	StateRecovering State = "recovering"
)

// Fetcher polls the boot identifier.
type Fetcher interface {
	FetchBootID(ctx context.Context) (string, error)
}

// Subscriber opens the push channel. The returned channel delivers boot
// identifiers and is closed when the channel breaks.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan string, error)
}

// Reloader forces a full, cache-busted reload of the kiosk client.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Presenter controls the blocking offline overlay.
type Presenter interface {
	ShowOffline()
	HideOffline()
}

// IDStore persists the last known boot identifier across client restarts.
type IDStore interface {
	Load() (string, error)
	Save(id string) error
}

// Monitor drives the online/offline/recovering state machine. Construct with
// New, then Run until the context is canceled.
type Monitor struct {
	fetch     Fetcher
	subscribe Subscriber
	reload    Reloader
	presenter Presenter
	store     IDStore

	heartbeatInterval time.Duration
	retryInterval     time.Duration

	mu           sync.Mutex
	state        State
	lastKnown    string
	offlineShown bool

	// recovering makes entry into the recovery loop idempotent: the heartbeat
	// and the push channel's failure handler may both observe a failure.
	recovering atomic.Bool

	wg sync.WaitGroup
}

// New creates a monitor. The last known boot identifier is loaded from the
// store; a load failure starts from a clean slate (first-load semantics).
func New(fetch Fetcher, subscribe Subscriber, reload Reloader, presenter Presenter, store IDStore, heartbeat, retry time.Duration) *Monitor {
	m := &Monitor{
		fetch:             fetch,
		subscribe:         subscribe,
		reload:            reload,
		presenter:         presenter,
		store:             store,
		heartbeatInterval: heartbeat,
		retryInterval:     retry,
		state:             StateOnline,
	}
	if id, err := store.Load(); err == nil {
		m.lastKnown = id
	} else {
		slog.Warn("Failed to load stored boot id, treating as first load", logfields.Error(err))
	}
	return m
}

// State reports the current connection state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run starts the heartbeat timer and the push subscription and blocks until
// ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.wg.Add(2)
	go m.heartbeatLoop(ctx)
	go m.pushLoop(ctx)
	<-ctx.Done()
	m.wg.Wait()
}

func (m *Monitor) heartbeatLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.State() != StateOnline {
				// The recovery loop owns retries while offline.
				continue
			}
			id, err := m.fetch.FetchBootID(ctx)
			if err != nil {
				slog.Warn("Heartbeat failed", logfields.Error(err))
				m.goOffline(ctx)
				continue
			}
			m.handleBootID(ctx, id)
		}
	}
}

func (m *Monitor) pushLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		ch, err := m.subscribe.Subscribe(ctx)
		if err != nil {
			slog.Warn("Push channel connect failed", logfields.Error(err))
			m.goOffline(ctx)
			if !sleepCtx(ctx, m.retryInterval) {
				return
			}
			continue
		}

		slog.Debug("Push channel connected")
		open := true
		for open {
			select {
			case <-ctx.Done():
				return
			case id, ok := <-ch:
				if !ok {
					open = false
					break
				}
				if m.State() == StateOnline {
					m.handleBootID(ctx, id)
				}
			}
		}

		// Channel closed: the push connection broke.
		slog.Warn("Push channel closed")
		m.goOffline(ctx)
		if !sleepCtx(ctx, m.retryInterval) {
			return
		}
	}
}

// handleBootID applies the identifier comparison while online. A first-ever
// observed identifier is stored without a reload; a changed identifier means
// the backend restarted and forces exactly one reload.
func (m *Monitor) handleBootID(ctx context.Context, id string) {
	m.mu.Lock()
	if m.lastKnown == "" {
		m.lastKnown = id
		m.saveLocked(id)
		m.mu.Unlock()
		slog.Info("Stored initial boot id", logfields.BootID(id))
		return
	}
	if id == m.lastKnown {
		m.mu.Unlock()
		return
	}
	m.lastKnown = id
	m.saveLocked(id)
	m.mu.Unlock()

	slog.Info("Backend restart detected, reloading", logfields.BootID(id))
	m.doReload(ctx)
}

// goOffline shows the overlay (idempotently) and starts the recovery loop if
// one is not already running.
func (m *Monitor) goOffline(ctx context.Context) {
	m.mu.Lock()
	if !m.offlineShown {
		m.offlineShown = true
		m.presenter.ShowOffline()
		slog.Info("Entered offline state")
	}
	m.state = StateOffline
	m.mu.Unlock()

	if !m.recovering.CompareAndSwap(false, true) {
		return
	}

	m.wg.Add(1)
	go m.recoveryLoop(ctx)
}

// recoveryLoop retries the fetch at a fixed interval until it succeeds, then
// transitions back online with exactly one forced reload.
func (m *Monitor) recoveryLoop(ctx context.Context) {
	defer m.wg.Done()
	defer m.recovering.Store(false)

	m.mu.Lock()
	m.state = StateRecovering
	m.mu.Unlock()

	ticker := time.NewTicker(m.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id, err := m.fetch.FetchBootID(ctx)
			if err != nil {
				slog.Debug("Recovery fetch failed", logfields.Error(err))
				continue
			}

			m.mu.Lock()
			m.lastKnown = id
			m.saveLocked(id)
			m.offlineShown = false
			m.state = StateOnline
			m.presenter.HideOffline()
			m.mu.Unlock()

			slog.Info("Recovered, reloading", logfields.BootID(id))
			m.doReload(ctx)
			return
		}
	}
}

func (m *Monitor) doReload(ctx context.Context) {
	if err := m.reload.Reload(ctx); err != nil {
		slog.Error("Forced reload failed", logfields.Error(err))
	}
}

// saveLocked persists the identifier; callers hold m.mu.
func (m *Monitor) saveLocked(id string) {
	if err := m.store.Save(id); err != nil {
		slog.Warn("Failed to persist boot id", logfields.Error(err))
	}
}

// sleepCtx sleeps for d, returning false if ctx was canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
