package metrics

import (
	"strconv"
	"sync"

	"mercator-hq/lifecycle/pkg/config"
	"mercator-hq/lifecycle/pkg/controller"

	"github.com/prometheus/client_golang/prometheus"
)

// categorySuccess labels requests that finished without a failure.
const categorySuccess = "SUCCESS"

// maxFailureLabelSets bounds distinct category and code pairs.
const maxFailureLabelSets = 1000

// Collector owns every lifecycle metric and the registry they are exposed
// from. It implements controller.Observer.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics     *RequestMetrics
	operationalMetrics *OperationalMetrics

	cardinalityLimiter *CardinalityLimiter
}

var _ controller.Observer = (*Collector)(nil)

// NewCollector creates a metrics collector with the specified configuration
// and Prometheus registry. If registry is nil a new one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}
	if len(cfg.BorrowedBuckets) == 0 {
		cfg.BorrowedBuckets = config.DefaultBorrowedBuckets
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		requestMetrics:     NewRequestMetrics(cfg, registry),
		operationalMetrics: NewOperationalMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(maxFailureLabelSets),
	}
}

// RegisterPools exposes statistics of every pool in source on each scrape.
func (c *Collector) RegisterPools(source StatsSource) error {
	return c.registry.Register(NewPoolCollector(c.config, source))
}

// RequestFinished records a finished request from its teardown summary.
func (c *Collector) RequestFinished(s controller.Summary) {
	if !c.config.Enabled {
		return
	}

	category := categorySuccess
	if s.Failure != nil {
		category = s.Failure.Category.String()

		code := strconv.Itoa(s.Failure.Code)
		if !c.cardinalityLimiter.Allow(category + ":" + code) {
			code = "other"
		}
		c.requestMetrics.RecordFailure(category, code)
	}

	c.requestMetrics.RecordRequest(
		s.Kind.String(),
		category,
		s.Duration.Seconds(),
		s.Borrowed,
		s.ReleaseFailures,
		s.Aborted,
	)
}

// RecordConfigReload records a configuration reload attempt.
func (c *Collector) RecordConfigReload(ok bool) {
	if !c.config.Enabled {
		return
	}
	c.operationalMetrics.configReloads.WithLabelValues(result(ok)).Inc()
}

// RecordMaintenance records one run of a scheduled job and how many items it
// removed.
func (c *Collector) RecordMaintenance(job string, pruned int, ok bool) {
	if !c.config.Enabled {
		return
	}
	c.operationalMetrics.maintenanceRuns.WithLabelValues(job, result(ok)).Inc()
	if pruned > 0 {
		c.operationalMetrics.pruned.WithLabelValues(job).Add(float64(pruned))
	}
}

// RecordAuditDropped records an audit record dropped by a full queue.
func (c *Collector) RecordAuditDropped() {
	if !c.config.Enabled {
		return
	}
	c.operationalMetrics.auditDropped.Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits under the
// limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
