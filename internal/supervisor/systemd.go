package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Systemd controls the kiosk service through systemctl.
type Systemd struct {
	unit    string
	timeout time.Duration
}

// NewSystemd creates a systemctl-backed supervisor for the given unit.
func NewSystemd(unit string, timeout time.Duration) *Systemd {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Systemd{unit: unit, timeout: timeout}
}

// IsActive runs `systemctl is-active <unit>`. systemctl exits non-zero for
// every state other than "active", so the output is inspected before the
// exit code is treated as an error.
func (s *Systemd) IsActive(ctx context.Context) (RunState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "systemctl", "is-active", s.unit).Output()
	text := strings.TrimSpace(string(out))

	switch text {
	case "active", "activating":
		return StateActive, nil
	case "inactive", "deactivating", "failed":
		return StateInactive, nil
	}
	if err != nil {
		return StateUnknown, fmt.Errorf("systemctl is-active %s: %w (output %q)", s.unit, err, text)
	}
	return StateUnknown, fmt.Errorf("systemctl is-active %s: unrecognized state %q", s.unit, text)
}

// Start runs `systemctl start <unit>`.
func (s *Systemd) Start(ctx context.Context) error {
	return s.run(ctx, "start")
}

// Stop runs `systemctl stop <unit>`.
func (s *Systemd) Stop(ctx context.Context) error {
	return s.run(ctx, "stop")
}

func (s *Systemd) run(ctx context.Context, verb string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	slog.Info("Invoking systemctl", "verb", verb, "unit", s.unit)
	out, err := exec.CommandContext(ctx, "systemctl", verb, s.unit).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s %s: %w (output %q)", verb, s.unit, err, strings.TrimSpace(string(out)))
	}
	return nil
}
