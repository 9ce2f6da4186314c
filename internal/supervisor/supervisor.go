// Package supervisor abstracts the external process supervisor controlling
// the kiosk service. The reconciler depends only on the narrow interface so
// tests run against a fake instead of a real service manager.
package supervisor

import "context"

// RunState is the externally observed run-state of the kiosk service.
type RunState string

const (
	StateActive   RunState = "active"
	StateInactive RunState = "inactive"
	StateUnknown  RunState = "unknown"
)

// Supervisor exposes the three operations the reconciler needs.
type Supervisor interface {
	// IsActive reports the observed run-state. Implementations return
	// StateUnknown (with an error) when the state cannot be determined;
	// callers treat unknown as inactive.
	IsActive(ctx context.Context) (RunState, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
