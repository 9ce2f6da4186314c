package events

import "time"

// ServiceStateChanged is published when a reconciliation pass issues a
// start or stop command.
type ServiceStateChanged struct {
	PassID    string    `json:"pass_id"`
	Previous  string    `json:"previous"`
	Desired   string    `json:"desired"`
	Action    string    `json:"action"` // start|stop
	Succeeded bool      `json:"succeeded"`
	Timestamp time.Time `json:"timestamp"`
}

// ReconcileCompleted is published after every reconciliation pass, including
// no-op passes.
type ReconcileCompleted struct {
	PassID   string        `json:"pass_id"`
	Mode     string        `json:"mode"`
	Desired  string        `json:"desired"`
	Observed string        `json:"observed"`
	Action   string        `json:"action"` // start|stop|none
	Duration time.Duration `json:"duration"`
}

// ConfigReloaded is published when the schedule or mode record changes on disk.
type ConfigReloaded struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}
