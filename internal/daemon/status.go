package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/audit"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/logfields"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/schedule"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/version"
)

// StatusPageData is the payload of the gateway's status endpoint.
type StatusPageData struct {
	DaemonInfo    DaemonInfo    `json:"daemon_info"`
	Service       ServiceStatus `json:"service"`
	BootID        string        `json:"boot_id"`
	Subscribers   int           `json:"subscribers"`
	RecentActions []audit.Entry `json:"recent_actions,omitempty"`
	LastUpdated   time.Time     `json:"last_updated"`
}

// DaemonInfo holds basic daemon information
type DaemonInfo struct {
	Status    DaemonStatus `json:"status"`
	Version   string       `json:"version"`
	StartTime time.Time    `json:"start_time"`
	Uptime    string       `json:"uptime"`
}

// ServiceStatus describes the managed service as the daemon sees it.
type ServiceStatus struct {
	Mode       string `json:"mode"`
	Desired    string `json:"desired"`
	Observed   string `json:"observed"`
	ActiveRule string `json:"active_rule,omitempty"`
}

// BuildStatus assembles the status payload.
func (d *Daemon) BuildStatus(ctx context.Context) StatusPageData {
	now := time.Now()
	mode, desired := d.reconciler.DesiredState(now)

	obsCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	observed, err := d.sup.IsActive(obsCtx)
	if err != nil {
		slog.Debug("Status supervisor query failed", logfields.Error(err))
	}

	svc := ServiceStatus{
		Mode:     string(mode),
		Desired:  string(desired),
		Observed: string(observed),
	}
	if rule, ok := d.activeRule(now); ok {
		svc.ActiveRule = rule
	}

	recent, err := d.auditLog.Recent(ctx, 20)
	if err != nil {
		slog.Debug("Status audit query failed", logfields.Error(err))
	}

	return StatusPageData{
		DaemonInfo: DaemonInfo{
			Status:    d.GetStatus(),
			Version:   version.Version,
			StartTime: d.startTime,
			Uptime:    time.Since(d.startTime).String(),
		},
		Service:       svc,
		BootID:        d.liveness.BootID(),
		Subscribers:   d.liveness.SubscriberCount(),
		RecentActions: recent,
		LastUpdated:   now,
	}
}

func (d *Daemon) activeRule(now time.Time) (string, bool) {
	set := d.store.ScheduleSet()
	rule, ok := schedule.ActiveRule(set, now)
	if !ok {
		return "", false
	}
	if rule.Name != "" {
		return rule.Name, true
	}
	return rule.ID, true
}

// StatusHandler serves the status payload as JSON.
func (d *Daemon) StatusHandler(w http.ResponseWriter, r *http.Request) {
	data := d.BuildStatus(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_ = json.NewEncoder(w).Encode(data)
}
