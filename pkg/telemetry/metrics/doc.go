// Package metrics provides Prometheus metrics for the request lifecycle.
//
// # Metrics Categories
//
//   - Request Metrics: request count by kind and outcome category, duration,
//     objects borrowed per request, release failures and aborts
//   - Failure Metrics: classified failures by category and code
//   - Pool Metrics: idle and in-use instances and lifetime counters for every
//     pool registered with a pool.Manager, read on each scrape
//   - Operational Metrics: configuration reloads, maintenance runs and
//     dropped audit records
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RegisterPools(manager)
//	dispatcher := controller.NewDispatcher(controllers, logger, collector)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Collector implements controller.Observer, so every finished request is
// recorded from its Summary.
//
// # Cardinality Management
//
// Domain failure codes are chosen by handlers. The collector keeps at most
// 1,000 distinct category and code pairs; codes beyond that are reported
// as "other".
package metrics
