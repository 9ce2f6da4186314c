package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	dispatchDecisions  *prom.CounterVec
	reconcileDuration  prom.Histogram
	reconcileActions   *prom.CounterVec
	pushSubscribers    prom.Gauge
	configReloads      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.dispatchDecisions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kiosk",
			Name:      "dispatch_decisions_total",
			Help:      "Gateway dispatch decisions by outcome",
		}, []string{"decision"})
		pr.reconcileDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "kiosk",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation passes",
			Buckets:   prom.DefBuckets,
		})
		pr.reconcileActions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kiosk",
			Name:      "reconcile_actions_total",
			Help:      "Reconcile actions by type and outcome",
		}, []string{"action", "outcome"})
		pr.pushSubscribers = prom.NewGauge(prom.GaugeOpts{
			Namespace: "kiosk",
			Name:      "push_subscribers",
			Help:      "Currently connected liveness push subscribers",
		})
		pr.configReloads = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kiosk",
			Name:      "config_reloads_total",
			Help:      "Configuration reload attempts by result",
		}, []string{"result"})
		reg.MustRegister(pr.dispatchDecisions, pr.reconcileDuration, pr.reconcileActions, pr.pushSubscribers, pr.configReloads)
	})
	return pr
}

func (p *PrometheusRecorder) IncDispatchDecision(decision DecisionLabel) {
	if p == nil || p.dispatchDecisions == nil {
		return
	}
	p.dispatchDecisions.WithLabelValues(string(decision)).Inc()
}

func (p *PrometheusRecorder) ObserveReconcileDuration(d time.Duration) {
	if p == nil || p.reconcileDuration == nil {
		return
	}
	p.reconcileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncReconcileAction(action, outcome string) {
	if p == nil || p.reconcileActions == nil {
		return
	}
	p.reconcileActions.WithLabelValues(action, outcome).Inc()
}

func (p *PrometheusRecorder) SetPushSubscribers(n int) {
	if p == nil || p.pushSubscribers == nil {
		return
	}
	p.pushSubscribers.Set(float64(n))
}

func (p *PrometheusRecorder) IncConfigReload(success bool) {
	if p == nil || p.configReloads == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.configReloads.WithLabelValues(res).Inc()
}
