package metrics

import (
	"mercator-hq/lifecycle/pkg/config"
	"mercator-hq/lifecycle/pkg/pool"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource supplies pool statistics on every scrape. *pool.Manager
// implements it.
type StatsSource interface {
	Stats() []pool.Stats
}

// PoolCollector is a prometheus.Collector that reads pool statistics at
// scrape time instead of mirroring them into gauges.
type PoolCollector struct {
	source StatsSource

	idle          *prometheus.Desc
	inUse         *prometheus.Desc
	created       *prometheus.Desc
	acquired      *prometheus.Desc
	released      *prometheus.Desc
	discarded     *prometheus.Desc
	releaseErrors *prometheus.Desc
	closed        *prometheus.Desc
}

// NewPoolCollector creates a collector over source.
func NewPoolCollector(cfg *config.MetricsConfig, source StatsSource) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(cfg.Namespace, "pool", name),
			help,
			[]string{"pool"},
			nil,
		)
	}

	return &PoolCollector{
		source:        source,
		idle:          desc("idle", "Idle instances waiting in the pool"),
		inUse:         desc("in_use", "Instances currently borrowed from the pool"),
		created:       desc("created_total", "Instances built by the pool factory"),
		acquired:      desc("acquired_total", "Instances handed out by the pool"),
		released:      desc("released_total", "Instances returned to the pool"),
		discarded:     desc("discarded_total", "Instances dropped by trimming, pruning or close"),
		releaseErrors: desc("release_errors_total", "Rejected releases of instances not borrowed from the pool"),
		closed:        desc("closed", "Whether the pool is closed (1) or open (0)"),
	}
}

// Describe implements prometheus.Collector.
func (pc *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.idle
	ch <- pc.inUse
	ch <- pc.created
	ch <- pc.acquired
	ch <- pc.released
	ch <- pc.discarded
	ch <- pc.releaseErrors
	ch <- pc.closed
}

// Collect implements prometheus.Collector.
func (pc *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range pc.source.Stats() {
		closed := 0.0
		if s.Closed {
			closed = 1
		}

		ch <- prometheus.MustNewConstMetric(pc.idle, prometheus.GaugeValue, float64(s.Idle), s.Name)
		ch <- prometheus.MustNewConstMetric(pc.inUse, prometheus.GaugeValue, float64(s.InUse), s.Name)
		ch <- prometheus.MustNewConstMetric(pc.created, prometheus.CounterValue, float64(s.Created), s.Name)
		ch <- prometheus.MustNewConstMetric(pc.acquired, prometheus.CounterValue, float64(s.Acquired), s.Name)
		ch <- prometheus.MustNewConstMetric(pc.released, prometheus.CounterValue, float64(s.Released), s.Name)
		ch <- prometheus.MustNewConstMetric(pc.discarded, prometheus.CounterValue, float64(s.Discarded), s.Name)
		ch <- prometheus.MustNewConstMetric(pc.releaseErrors, prometheus.CounterValue, float64(s.ReleaseErrors), s.Name)
		ch <- prometheus.MustNewConstMetric(pc.closed, prometheus.GaugeValue, closed, s.Name)
	}
}
