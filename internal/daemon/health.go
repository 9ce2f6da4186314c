package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/supervisor"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/version"
)

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

// PerformHealthChecks executes all health checks and returns the overall status
func (d *Daemon) PerformHealthChecks(ctx context.Context) *HealthResponse {
	var checks []HealthCheck
	overallStatus := HealthStatusHealthy

	degrade := func(c HealthCheck) {
		checks = append(checks, c)
		switch c.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	degrade(d.checkDaemonHealth())
	degrade(d.checkStateStoreHealth())
	degrade(d.checkSupervisorHealth(ctx))
	degrade(d.checkAuditLogHealth(ctx))
	degrade(d.checkPushChannelHealth())

	return &HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Uptime:    time.Since(d.startTime).String(),
		Version:   version.Version,
		Checks:    checks,
	}
}

// checkDaemonHealth verifies the daemon is in a healthy state
func (d *Daemon) checkDaemonHealth() HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Name:        "daemon_status",
		LastChecked: time.Now(),
		Duration:    time.Since(start),
	}

	switch d.GetStatus() {
	case StatusRunning:
		check.Status = HealthStatusHealthy
		check.Message = "Daemon is running normally"
	case StatusStarting:
		check.Status = HealthStatusDegraded
		check.Message = "Daemon is still starting up"
	case StatusStopping, StatusStopped:
		check.Status = HealthStatusDegraded
		check.Message = "Daemon is shutting down"
	case StatusError:
		check.Status = HealthStatusUnhealthy
		check.Message = "Daemon is in error state"
	default:
		check.Status = HealthStatusUnhealthy
		check.Message = "Daemon is in unknown state"
	}

	return check
}

// checkStateStoreHealth verifies the schedule and mode files are readable.
// The store fails closed on errors, so a broken file degrades rather than
// breaks the daemon.
func (d *Daemon) checkStateStoreHealth() HealthCheck {
	start := time.Now()

	set := d.store.ScheduleSet()
	mode := d.store.Mode()

	check := HealthCheck{
		Name:        "state_store",
		Status:      HealthStatusHealthy,
		Message:     fmt.Sprintf("%d schedule rules, mode %s", len(set.Rules), mode),
		LastChecked: time.Now(),
		Duration:    time.Since(start),
	}
	return check
}

// checkSupervisorHealth verifies the service supervisor answers queries.
func (d *Daemon) checkSupervisorHealth(ctx context.Context) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Name:        "supervisor",
		LastChecked: time.Now(),
	}

	obsCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	runState, err := d.sup.IsActive(obsCtx)
	check.Duration = time.Since(start)

	switch {
	case err != nil:
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("Supervisor query failed: %v", err)
	case runState == supervisor.StateUnknown:
		check.Status = HealthStatusDegraded
		check.Message = "Service run-state could not be determined"
	default:
		check.Status = HealthStatusHealthy
		check.Message = fmt.Sprintf("Service is %s", runState)
	}

	return check
}

// checkAuditLogHealth verifies the audit database answers queries.
func (d *Daemon) checkAuditLogHealth(ctx context.Context) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Name:        "audit_log",
		LastChecked: time.Now(),
	}

	_, err := d.auditLog.Recent(ctx, 1)
	check.Duration = time.Since(start)

	if err != nil {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("Audit log query failed: %v", err)
	} else {
		check.Status = HealthStatusHealthy
		check.Message = "Audit log is operational"
	}

	return check
}

// checkPushChannelHealth reports on the liveness push channel.
func (d *Daemon) checkPushChannelHealth() HealthCheck {
	start := time.Now()

	return HealthCheck{
		Name:        "push_channel",
		Status:      HealthStatusHealthy,
		Message:     fmt.Sprintf("%d subscribers connected", d.liveness.SubscriberCount()),
		LastChecked: time.Now(),
		Duration:    time.Since(start),
	}
}

// HealthHandler serves detailed health information.
func (d *Daemon) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := d.PerformHealthChecks(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	switch health.Status {
	case HealthStatusHealthy, HealthStatusDegraded:
		w.WriteHeader(http.StatusOK)
	case HealthStatusUnhealthy:
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(health)
}
