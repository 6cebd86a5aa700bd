package metrics

import (
	"mercator-hq/lifecycle/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationalMetrics tracks background work of the server process.
type OperationalMetrics struct {
	configReloads   *prometheus.CounterVec
	maintenanceRuns *prometheus.CounterVec
	pruned          *prometheus.CounterVec
	auditDropped    prometheus.Counter
}

// NewOperationalMetrics creates and registers operational metrics.
func NewOperationalMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *OperationalMetrics {
	om := &OperationalMetrics{
		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "config_reloads_total",
				Help:      "Total number of configuration reloads by result",
			},
			[]string{"result"},
		),
		maintenanceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "maintenance_runs_total",
				Help:      "Total number of scheduled maintenance runs by job and result",
			},
			[]string{"job", "result"},
		),
		pruned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "maintenance_pruned_total",
				Help:      "Total number of items removed by maintenance jobs",
			},
			[]string{"job"},
		),
		auditDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_records_dropped_total",
				Help:      "Total number of audit records dropped because the recorder queue was full",
			},
		),
	}

	registry.MustRegister(om.configReloads, om.maintenanceRuns, om.pruned, om.auditDropped)
	return om
}
