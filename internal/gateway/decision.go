package gateway

import (
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/state"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/supervisor"
)

// Decision is the per-request forward-or-block outcome.
type Decision string

const (
	// DecideForward proxies the request to the kiosk backend untouched.
	DecideForward Decision = "forward"
	// DecideUnavailable answers locally: the kiosk is switched off by override.
	DecideUnavailable Decision = "unavailable"
	// DecideStarting answers locally: manual-on but the backend is not up yet.
	DecideStarting Decision = "starting"
	// DecideScheduledOff answers locally: auto mode outside the schedule, or
	// the backend is down.
	DecideScheduledOff Decision = "scheduled-off"
)

// Decide resolves the dispatch decision from the current mode and observed
// backend health. manual-off blocks regardless of observation; inactive and
// unknown observations are treated the same (fail-closed).
func Decide(mode state.Mode, observed supervisor.RunState) Decision {
	switch mode {
	case state.ModeManualOff:
		return DecideUnavailable
	case state.ModeManualOn:
		if observed == supervisor.StateActive {
			return DecideForward
		}
		return DecideStarting
	default: // auto
		if observed == supervisor.StateActive {
			return DecideForward
		}
		return DecideScheduledOff
	}
}
