// Package health provides liveness, readiness and version endpoints.
//
// Liveness answers 200 while the process serves HTTP. Readiness runs every
// registered check concurrently, each bounded by the configured timeout,
// and answers 503 when any fails. The server registers these checks:
//
//   - pools: every registered object pool is open
//   - audit_storage: the audit backend answers a ping, when auditing is on
//   - memory: host memory usage is under telemetry.health.max_memory_percent,
//     when set
package health
