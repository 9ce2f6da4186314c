// Package notify publishes kiosk state transitions to NATS for external
// dashboards. It is optional: a nil Publisher is safe to call and does nothing.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/config"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/daemon/events"
)

// Publisher forwards state-change events to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS when notification is enabled. It returns
// (nil, nil) when the feature is disabled so callers can hold a nil Publisher.
func NewPublisher(cfg config.NotifyConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("kioskd"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS notifier connected", "url", cfg.NATSURL, "subject", cfg.Subject)
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// PublishStateChange publishes a service state transition. Failures are
// logged, never propagated: notification is best effort.
func (p *Publisher) PublishStateChange(evt events.ServiceStateChanged) {
	if p == nil {
		return
	}

	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("Failed to marshal state change event", "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		slog.Warn("Failed to publish state change to NATS", "subject", p.subject, "error", err)
	}
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		slog.Warn("NATS drain failed", "error", err)
	}
}
