package gateway

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/supervisor"
)

// HealthObserver reports the backend's observed run-state for dispatch
// decisions. Implementations must be cheap and safe under concurrent calls;
// every inbound request consults the observer.
type HealthObserver interface {
	Observe(ctx context.Context) supervisor.RunState
}

// TCPProbe observes backend health by dialing its address with a short
// timeout. A completed dial means active; a refused connection means
// inactive; a timeout or other dial error means unknown. Unknown is treated
// as inactive by the decision table, so a slow probe only ever fails closed.
type TCPProbe struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewTCPProbe builds a probe for the backend base URL.
func NewTCPProbe(backendURL string, timeout time.Duration) (*TCPProbe, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	return &TCPProbe{addr: host, timeout: timeout}, nil
}

func (p *TCPProbe) Observe(ctx context.Context) supervisor.RunState {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err == nil {
		_ = conn.Close()
		return supervisor.StateActive
	}
	if ctx.Err() != nil {
		return supervisor.StateUnknown
	}
	return supervisor.StateInactive
}
