package config

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validatePool("controllers", &cfg.Controllers)...)

	names := make([]string, 0, len(cfg.Pools))
	for name := range cfg.Pools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.Pools[name]
		if name == "" {
			errs = append(errs, FieldError{Field: "pools", Message: "pool name must not be empty"})
			continue
		}
		errs = append(errs, validatePool("pools."+name, &p)...)
	}

	errs = append(errs, validateMaintenance(&cfg.Maintenance)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, FieldError{
			Field:   "watch.debounce",
			Message: "debounce must not be negative",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must not be negative"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must not be negative"})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must not be negative"})
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be positive"})
	}

	ws := &cfg.WebSocket
	if ws.Enabled {
		if !strings.HasPrefix(ws.Path, "/") {
			errs = append(errs, FieldError{Field: "server.websocket.path", Message: "websocket path must start with /"})
		}
		if ws.WriteTimeout <= 0 {
			errs = append(errs, FieldError{Field: "server.websocket.write_timeout", Message: "write timeout must be positive"})
		}
		if ws.PingInterval <= 0 {
			errs = append(errs, FieldError{Field: "server.websocket.ping_interval", Message: "ping interval must be positive"})
		}
		if ws.ReadTimeout > 0 && ws.ReadTimeout <= ws.PingInterval {
			errs = append(errs, FieldError{
				Field:   "server.websocket.read_timeout",
				Message: "read timeout must be longer than the ping interval",
			})
		}
		if ws.MaxMessageBytes <= 0 {
			errs = append(errs, FieldError{Field: "server.websocket.max_message_bytes", Message: "max message bytes must be positive"})
		}
	}

	return errs
}

// validatePool validates one pool's sizing.
func validatePool(field string, cfg *PoolConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxIdle < 0 {
		errs = append(errs, FieldError{Field: field + ".max_idle", Message: "max idle must not be negative"})
	}
	if cfg.MaxActive < 0 {
		errs = append(errs, FieldError{Field: field + ".max_active", Message: "max active must not be negative"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: field + ".idle_timeout", Message: "idle timeout must not be negative"})
	}

	return errs
}

// validateMaintenance validates maintenance configuration.
func validateMaintenance(cfg *MaintenanceConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	return validateSchedule("maintenance.prune_schedule", cfg.PruneSchedule)
}

// validateAudit validates audit configuration.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case "memory":
		if cfg.Memory.MaxRecords < 0 {
			errs = append(errs, FieldError{Field: "audit.memory.max_records", Message: "max records must not be negative"})
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.path",
				Message: "sqlite path is required when using sqlite backend",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.driver",
				Message: fmt.Sprintf("invalid sqlite driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{Field: "audit.sqlite.max_open_conns", Message: "max open connections must not be negative"})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{Field: "audit.sqlite.busy_timeout", Message: "busy timeout must not be negative"})
		}
	case "mysql":
		if cfg.MySQL.DSN == "" {
			errs = append(errs, FieldError{
				Field:   "audit.mysql.dsn",
				Message: "mysql dsn is required when using mysql backend",
			})
		}
		if cfg.MySQL.MaxOpenConns < 0 {
			errs = append(errs, FieldError{Field: "audit.mysql.max_open_conns", Message: "max open connections must not be negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'mysql'", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "audit.recorder.async_buffer", Message: "async buffer must not be negative"})
	}
	if cfg.Recorder.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "audit.recorder.write_timeout", Message: "write timeout must not be negative"})
	}

	if cfg.Retention.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.retention_days", Message: "retention days must not be negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.max_records", Message: "max records must not be negative"})
	}
	errs = append(errs, validateSchedule("audit.retention.prune_schedule", cfg.Retention.PruneSchedule)...)

	return errs
}

// validateSchedule checks a cron expression, allowing descriptors such as
// "@every 1m" and "@daily".
func validateSchedule(field, schedule string) []FieldError {
	if schedule == "" {
		return []FieldError{{Field: field, Message: "schedule is required"}}
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid cron schedule %q: %v", schedule, err)}}
	}
	return nil
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		}
	}

	// Validate metrics
	if cfg.Metrics.Enabled {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
		if cfg.Metrics.Namespace == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.namespace",
				Message: "metrics namespace is required when metrics are enabled",
			})
		}
		if !ascending(cfg.Metrics.RequestDurationBuckets) {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.request_duration_buckets",
				Message: "buckets must be strictly increasing",
			})
		}
		if !ascending(cfg.Metrics.BorrowedBuckets) {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.borrowed_buckets",
				Message: "buckets must be strictly increasing",
			})
		}
	}

	// Validate tracing
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	// Validate health check paths
	if cfg.Health.Enabled {
		if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path must start with /",
			})
		}
		if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must start with /",
			})
		}
		if cfg.Health.LivenessPath != "" && cfg.Health.LivenessPath == cfg.Health.ReadinessPath {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must differ from liveness path",
			})
		}
		if cfg.Health.MaxMemoryPercent < 0 || cfg.Health.MaxMemoryPercent > 100 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.max_memory_percent",
				Message: "max memory percent must be between 0 and 100",
			})
		}
	}

	return errs
}

func ascending(buckets []float64) bool {
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return false
		}
	}
	return true
}
