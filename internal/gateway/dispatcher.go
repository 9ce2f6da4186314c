// Package gateway implements the always-on HTTP front door for the kiosk.
// Every inbound request is either forwarded to the kiosk backend untouched or
// answered locally with a block page, based on the current operating mode and
// the observed backend health.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/logfields"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/metrics"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/server/middleware"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/state"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/supervisor"
)

// LocalPrefix is the reserved path prefix for the gateway's own endpoints
// (status, liveness, metrics). Requests under it are never proxied, so the
// backend must not claim paths beneath it.
const LocalPrefix = "/kiosk/"

// Dispatcher routes each request through the decision table. It reads mode
// and observation fresh per request; neither read blocks on shared state, so
// concurrent requests never serialize on the decision.
type Dispatcher struct {
	modes    state.ModeProvider
	observer HealthObserver
	proxy    *httputil.ReverseProxy
	pages    *blockPages
	recorder metrics.Recorder

	localMux *http.ServeMux
	local    http.Handler

	server *http.Server
}

// NewDispatcher builds a dispatcher proxying to the backend base URL.
func NewDispatcher(backendURL string, modes state.ModeProvider, observer HealthObserver, recorder metrics.Recorder) (*Dispatcher, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", backendURL, err)
	}

	pages, err := renderBlockPages()
	if err != nil {
		return nil, err
	}

	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	d := &Dispatcher{
		modes:    modes,
		observer: observer,
		pages:    pages,
		recorder: recorder,
		localMux: http.NewServeMux(),
	}

	// The proxy must never touch the request body before forwarding; eager
	// buffering would corrupt or stall streamed uploads.
	d.proxy = httputil.NewSingleHostReverseProxy(target)
	d.proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		// Backend died between the health probe and the forward. Answer as if
		// it had been observed down, so manual-on still gets the starting page.
		slog.Warn("Proxy to backend failed",
			logfields.Path(r.URL.Path), logfields.Error(err))
		d.respondLocal(w, Decide(d.modes.Mode(), supervisor.StateInactive))
	}

	d.local = middleware.Chain(slog.Default())(d.localMux)
	return d, nil
}

// HandleLocal registers a handler on the gateway's reserved local prefix.
// The pattern must live under LocalPrefix.
func (d *Dispatcher) HandleLocal(pattern string, handler http.Handler) {
	if !strings.HasPrefix(pattern, LocalPrefix) {
		panic(fmt.Sprintf("local handler pattern %q outside %s", pattern, LocalPrefix))
	}
	d.localMux.Handle(pattern, handler)
}

// ServeHTTP decides first, then either forwards the raw request or answers
// locally. Only local endpoints may read the request body.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, LocalPrefix) {
		d.local.ServeHTTP(w, r)
		return
	}

	mode := d.modes.Mode()
	observed := d.observer.Observe(r.Context())
	decision := Decide(mode, observed)

	if decision == DecideForward {
		d.recorder.IncDispatchDecision(metrics.DecisionForwarded)
		d.proxy.ServeHTTP(w, r)
		return
	}

	switch decision {
	case DecideUnavailable:
		d.recorder.IncDispatchDecision(metrics.DecisionBlockedOff)
	case DecideStarting:
		d.recorder.IncDispatchDecision(metrics.DecisionBlockedStart)
	default:
		d.recorder.IncDispatchDecision(metrics.DecisionBlockedOutside)
	}

	slog.Debug("Request blocked",
		logfields.Path(r.URL.Path),
		logfields.Mode(string(mode)),
		logfields.Observed(string(observed)),
		slog.String("decision", string(decision)))
	d.respondLocal(w, decision)
}

func (d *Dispatcher) respondLocal(w http.ResponseWriter, decision Decision) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusServiceUnavailable)
	if _, err := w.Write(d.pages.forDecision(decision)); err != nil {
		slog.Debug("block page write", "error", err)
	}
}

// Start binds the listen address and serves until Stop. The listener is
// pre-bound so startup failures surface before the daemon reports ready.
// Write timeouts stay disabled: the local prefix carries long-lived SSE
// subscriptions.
func (d *Dispatcher) Start(listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("gateway listen %s: %w", listen, err)
	}

	d.server = &http.Server{
		Handler:           d,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	}
	go func() {
		if err := d.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Gateway server error", logfields.Error(err))
		}
	}()

	slog.Info("Gateway listening", "addr", listen)
	return nil
}

// Stop gracefully shuts the gateway down.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.server == nil {
		return nil
	}
	return d.server.Shutdown(ctx)
}
