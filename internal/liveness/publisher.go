// Package liveness exposes the backend boot identifier to clients, via a
// pollable endpoint and an SSE push channel. Clients compare the identifier
// across fetches to detect backend restarts.
package liveness

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/metrics"
)

// BootEvent is the SSE event name carrying the boot identifier.
const BootEvent = "boot"

// BootResponse is the payload of the pollable endpoint.
type BootResponse struct {
	BootID string `json:"bootId"`
}

// Publisher owns the boot identifier for this process lifetime and fans it
// out to connected SSE subscribers. One subscriber disconnecting never
// affects delivery to the others.
type Publisher struct {
	bootID string

	mu      sync.RWMutex
	nextID  int
	clients map[int]*subscriber
	closed  bool

	recorder metrics.Recorder
}

type subscriber struct {
	id   int
	done chan struct{}
}

// NewPublisher mints a fresh boot identifier. Call once at process start; the
// identifier is constant for the process lifetime.
func NewPublisher(recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Publisher{
		bootID:   uuid.NewString(),
		clients:  map[int]*subscriber{},
		recorder: recorder,
	}
}

// BootID returns this process lifetime's identifier.
func (p *Publisher) BootID() string {
	return p.bootID
}

// HandleBoot serves the pollable endpoint returning {"bootId": ...}.
func (p *Publisher) HandleBoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := json.NewEncoder(w).Encode(BootResponse{BootID: p.bootID}); err != nil {
		slog.Debug("boot id write", "error", err)
	}
}

// ServeHTTP implements the SSE push endpoint. Every subscriber receives a
// boot event immediately on connection, then periodic keepalive comments. The
// identifier is constant per process lifetime, so the connect-time event is
// the only data event: a restarted backend is a new process, and the client's
// reconnect delivers the new identifier.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		http.Error(w, "liveness publisher shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	// Register subscriber
	sub := &subscriber{done: make(chan struct{})}
	p.mu.Lock()
	sub.id = p.nextID
	p.nextID++
	p.clients[sub.id] = sub
	count := len(p.clients)
	p.mu.Unlock()
	p.recorder.SetPushSubscribers(count)

	bw := bufio.NewWriter(w)
	if !p.writeBootEvent(bw, flusher, p.bootID) {
		p.removeSubscriber(sub.id)
		return
	}

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			p.removeSubscriber(sub.id)
			return
		case <-sub.done:
			p.removeSubscriber(sub.id)
			return
		case <-keepalive.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				slog.Debug("liveness ping write", "error", err)
				p.removeSubscriber(sub.id)
				return
			}
			bw.Flush()
			flusher.Flush()
		}
	}
}

func (p *Publisher) writeBootEvent(bw *bufio.Writer, flusher http.Flusher, id string) bool {
	if _, err := bw.WriteString("event: " + BootEvent + "\ndata: " + id + "\n\n"); err != nil {
		slog.Debug("liveness event write", "error", err)
		return false
	}
	bw.Flush()
	flusher.Flush()
	return true
}

func (p *Publisher) removeSubscriber(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.clients[id]; ok {
		delete(p.clients, id)
		close(s.done)
		p.recorder.SetPushSubscribers(len(p.clients))
	}
}

// SubscriberCount reports connected push subscribers (diagnostics/tests).
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// Shutdown disconnects all subscribers and refuses new connections.
func (p *Publisher) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	clients := p.clients
	p.clients = map[int]*subscriber{}
	p.mu.Unlock()
	for _, s := range clients {
		close(s.done)
	}
	p.recorder.SetPushSubscribers(0)
}
