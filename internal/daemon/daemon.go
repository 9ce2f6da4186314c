// Package daemon wires the gateway, reconciler, liveness publisher, and state
// watcher into one long-running process.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/audit"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/config"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/daemon/events"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/gateway"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/liveness"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/logfields"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/metrics"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/notify"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/reconcile"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/state"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/supervisor"
)

// DaemonStatus represents the daemon lifecycle state.
type DaemonStatus string

const (
	StatusStarting DaemonStatus = "starting"
	StatusRunning  DaemonStatus = "running"
	StatusStopping DaemonStatus = "stopping"
	StatusStopped  DaemonStatus = "stopped"
	StatusError    DaemonStatus = "error"
)

// Daemon owns all long-running components of kioskd serve.
type Daemon struct {
	cfg       *config.Config
	startTime time.Time

	statusMu sync.RWMutex
	status   DaemonStatus

	store      *state.FileStore
	sup        supervisor.Supervisor
	reconciler *reconcile.Reconciler
	auditLog   *audit.SQLiteLog
	bus        *events.Bus
	notifier   *notify.Publisher
	recorder   metrics.Recorder
	registry   *prom.Registry
	dispatcher *gateway.Dispatcher
	liveness   *liveness.Publisher
	scheduler  *Scheduler
	watcher    *StateWatcher

	forwarderDone chan struct{}
	unsubscribe   func()
}

// New builds a fully wired daemon from the configuration. Nothing starts
// running until Run is called.
func New(cfg *config.Config) (*Daemon, error) {
	d := &Daemon{
		cfg:       cfg,
		status:    StatusStarting,
		startTime: time.Now(),
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Monitoring.MetricsEnabled {
		d.registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(d.registry)
	}
	d.recorder = recorder

	d.store = state.NewFileStore(cfg.State.SchedulePath, cfg.State.ModePath)
	d.sup = supervisor.NewSystemd(cfg.Supervisor.Unit, cfg.Supervisor.Timeout)
	d.bus = events.NewBus()

	auditLog, err := audit.NewSQLiteLog(cfg.State.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	d.auditLog = auditLog

	notifier, err := notify.NewPublisher(cfg.Notify)
	if err != nil {
		// Notification is best effort; the daemon runs without it.
		slog.Warn("Notification publisher unavailable", logfields.Error(err))
	}
	d.notifier = notifier

	d.reconciler = reconcile.New(d.store, d.store, d.sup,
		reconcile.WithAuditLog(auditLog),
		reconcile.WithBus(d.bus),
		reconcile.WithRecorder(recorder),
	)

	probe, err := gateway.NewTCPProbe(cfg.Backend.URL, cfg.Backend.ProbeTimeout)
	if err != nil {
		return nil, fmt.Errorf("building backend probe: %w", err)
	}

	dispatcher, err := gateway.NewDispatcher(cfg.Backend.URL, d.store, probe, recorder)
	if err != nil {
		return nil, fmt.Errorf("building gateway: %w", err)
	}
	d.dispatcher = dispatcher

	d.liveness = liveness.NewPublisher(recorder)
	d.registerLocalEndpoints()

	scheduler, err := NewScheduler()
	if err != nil {
		return nil, err
	}
	d.scheduler = scheduler

	watcher, err := NewStateWatcher(
		[]string{cfg.State.SchedulePath, cfg.State.ModePath},
		func(ctx context.Context) { d.reconciler.Reconcile(ctx) },
		d.bus, recorder)
	if err != nil {
		return nil, fmt.Errorf("building state watcher: %w", err)
	}
	d.watcher = watcher

	return d, nil
}

// registerLocalEndpoints mounts the gateway's reserved endpoints.
func (d *Daemon) registerLocalEndpoints() {
	d.dispatcher.HandleLocal("/kiosk/boot", http.HandlerFunc(d.liveness.HandleBoot))
	d.dispatcher.HandleLocal("/kiosk/events", d.liveness)
	d.dispatcher.HandleLocal("/kiosk/monitor.js", http.HandlerFunc(serveMonitorScript))
	d.dispatcher.HandleLocal("/kiosk/status", http.HandlerFunc(d.StatusHandler))
	d.dispatcher.HandleLocal("/kiosk/healthz", http.HandlerFunc(d.HealthHandler))
	if d.registry != nil {
		d.dispatcher.HandleLocal("/kiosk/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	}
}

func serveMonitorScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(liveness.MonitorScript))
}

// Run starts all components and blocks until ctx is canceled, then shuts
// everything down in reverse order.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("Starting kiosk daemon",
		slog.String("listen", d.cfg.Gateway.Listen),
		slog.String("backend", d.cfg.Backend.URL),
		slog.String("unit", d.cfg.Supervisor.Unit))

	if err := d.dispatcher.Start(d.cfg.Gateway.Listen); err != nil {
		d.setStatus(StatusError)
		return err
	}

	d.startNotifyForwarder()

	if _, err := d.scheduler.ScheduleEvery("reconcile", d.cfg.Reconcile.Interval, func() {
		d.reconciler.Reconcile(context.Background())
	}); err != nil {
		d.setStatus(StatusError)
		return err
	}
	d.scheduler.Start(ctx)

	if err := d.watcher.Start(ctx); err != nil {
		d.setStatus(StatusError)
		return err
	}

	// Converge immediately instead of waiting out the first interval.
	d.reconciler.Reconcile(ctx)

	d.setStatus(StatusRunning)
	slog.Info("Kiosk daemon running")

	<-ctx.Done()
	return d.shutdown()
}

// startNotifyForwarder bridges reconcile state changes onto the external
// notification channel.
func (d *Daemon) startNotifyForwarder() {
	ch, unsub := events.Subscribe[events.ServiceStateChanged](d.bus, 16)
	d.unsubscribe = unsub
	d.forwarderDone = make(chan struct{})

	go func() {
		defer close(d.forwarderDone)
		for evt := range ch {
			d.notifier.PublishStateChange(evt)
		}
	}()
}

func (d *Daemon) shutdown() error {
	d.setStatus(StatusStopping)
	slog.Info("Stopping kiosk daemon")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := d.watcher.Stop(shutdownCtx); err != nil {
		slog.Error("State watcher shutdown failed", logfields.Error(err))
	}
	if err := d.scheduler.Stop(shutdownCtx); err != nil {
		slog.Error("Scheduler shutdown failed", logfields.Error(err))
	}

	d.liveness.Shutdown()
	if err := d.dispatcher.Stop(shutdownCtx); err != nil {
		slog.Error("Gateway shutdown failed", logfields.Error(err))
	}

	if d.unsubscribe != nil {
		d.unsubscribe()
		<-d.forwarderDone
	}
	d.bus.Close()
	d.notifier.Close()

	if err := d.auditLog.Close(); err != nil {
		slog.Error("Audit log close failed", logfields.Error(err))
	}

	d.setStatus(StatusStopped)
	slog.Info("Kiosk daemon stopped")
	return nil
}

// GetStatus returns the daemon lifecycle state.
func (d *Daemon) GetStatus() DaemonStatus {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()
	return d.status
}

func (d *Daemon) setStatus(s DaemonStatus) {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	d.status = s
}
