package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/config"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/daemon/events"
)

func TestNewPublisher_DisabledReturnsNil(t *testing.T) {
	p, err := NewPublisher(config.NotifyConfig{Enabled: false, NATSURL: "nats://127.0.0.1:4222"})
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestPublisher_NilIsSafe(t *testing.T) {
	var p *Publisher

	require.NotPanics(t, func() {
		p.PublishStateChange(events.ServiceStateChanged{
			PassID:    "pass-1",
			Previous:  "inactive",
			Desired:   "running",
			Action:    "start",
			Succeeded: true,
			Timestamp: time.Now(),
		})
	})
	require.NotPanics(t, func() { p.Close() })
}
