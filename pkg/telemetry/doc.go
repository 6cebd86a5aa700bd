// Package telemetry groups the observability packages of the lifecycle
// server.
//
// # Components
//
//   - logging: slog based structured logging with secret redaction and the
//     per-request notice log
//   - metrics: Prometheus request, failure, pool and maintenance metrics
//   - tracing: OpenTelemetry spans for requests and dispatches
//   - health: liveness and readiness probes over registered checks
//
// # Usage
//
//	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging, os.Stdout))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("pools", health.PoolsCheck(manager))
//
// The metrics collector is a controller.Observer: pass it to
// controller.NewDispatcher and every finished request is counted.
package telemetry
