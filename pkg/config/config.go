package config

import "time"

// Config is the root configuration structure.
type Config struct {
	// Server contains HTTP and websocket server configuration.
	Server ServerConfig `yaml:"server"`

	// Controllers sizes the pool of request controllers.
	Controllers PoolConfig `yaml:"controllers"`

	// Pools sizes the auxiliary object pools, keyed by pool name.
	Pools map[string]PoolConfig `yaml:"pools"`

	// Maintenance configures periodic pool pruning.
	Maintenance MaintenanceConfig `yaml:"maintenance"`

	// Audit configures the request audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics, tracing and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch configures reloading the configuration file on change.
	Watch WatchConfig `yaml:"watch"`
}

// ServerConfig contains configuration for the server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request when
	// keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// WebSocket configures the connection endpoint.
	WebSocket WebSocketConfig `yaml:"websocket"`

	// TemplatesGlob is a glob of html templates used for view responses.
	// Empty disables views.
	TemplatesGlob string `yaml:"templates_glob"`
}

// WebSocketConfig configures the websocket endpoint.
type WebSocketConfig struct {
	// Enabled controls whether the endpoint is mounted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the endpoint path.
	// Default: "/ws"
	Path string `yaml:"path"`

	// WriteTimeout bounds a single frame write.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PingInterval is how often the server pings idle connections.
	// Default: 30s
	PingInterval time.Duration `yaml:"ping_interval"`

	// ReadTimeout closes connections that send nothing, not even a pong,
	// for this long.
	// Default: 90s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// MaxMessageBytes limits the size of one frame.
	// Default: 65536
	MaxMessageBytes int64 `yaml:"max_message_bytes"`

	// AllowedOrigins lists accepted Origin headers. Empty accepts same-host
	// origins only; ["*"] accepts any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// PoolConfig sizes one pool.
type PoolConfig struct {
	// MaxIdle is the number of idle instances kept.
	// Default: 64
	MaxIdle int `yaml:"max_idle"`

	// MaxActive bounds borrowed instances. Zero means unbounded.
	// Default: 0
	MaxActive int `yaml:"max_active"`

	// IdleTimeout discards idle instances older than this on maintenance.
	// Default: 5m
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// MaintenanceConfig configures periodic maintenance.
type MaintenanceConfig struct {
	// Enabled controls whether the maintenance scheduler runs.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// PruneSchedule is the cron schedule for pruning idle pool instances.
	// Default: "@every 1m"
	PruneSchedule string `yaml:"prune_schedule"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	// Enabled controls whether finished requests are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite", "mysql"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// MySQL configures the mysql backend.
	MySQL MySQLConfig `yaml:"mysql"`

	// Memory configures the in-memory backend.
	Memory MemoryConfig `yaml:"memory"`

	// Recorder configures asynchronous recording.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention configures pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns limits open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MySQLConfig configures the mysql backend.
type MySQLConfig struct {
	// DSN is the go-sql-driver/mysql data source name.
	// Example: "audit:secret@tcp(db:3306)/audit?parseTime=true"
	DSN string `yaml:"dsn"`

	// MaxOpenConns limits open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime recycles connections older than this.
	// Default: 5m
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// MemoryConfig configures the in-memory backend.
type MemoryConfig struct {
	// MaxRecords caps the number of kept records. Oldest go first.
	// Default: 10000
	MaxRecords int `yaml:"max_records"`
}

// RecorderConfig configures asynchronous audit recording.
type RecorderConfig struct {
	// AsyncBuffer is the number of records queued before new ones are
	// dropped.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single store.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig configures pruning of old audit records.
type RetentionConfig struct {
	// RetentionDays deletes records older than this many days. Zero keeps
	// records forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords deletes the oldest records beyond this count. Zero means
	// unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is the cron schedule for pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables redaction of credentials in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "lifecycle"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "server"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration
	// in seconds.
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// BorrowedBuckets defines histogram buckets for objects borrowed per
	// request.
	// Default: [0, 1, 2, 4, 8, 16, 32]
	BorrowedBuckets []float64 `yaml:"borrowed_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds a single export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "lifecycle"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the HTTP path for the liveness probe.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the HTTP path for the readiness probe.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// MaxMemoryPercent fails readiness while host memory usage is above
	// this percentage. Zero disables the check.
	MaxMemoryPercent float64 `yaml:"max_memory_percent"`
}

// WatchConfig configures configuration file watching.
type WatchConfig struct {
	// Enabled controls whether the file is watched.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Debounce is the quiet period after a change before reloading.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}
