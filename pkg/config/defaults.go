package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 1048576 // 1MB

	// WebSocket defaults
	DefaultWebSocketEnabled         = true
	DefaultWebSocketPath            = "/ws"
	DefaultWebSocketWriteTimeout    = 10 * time.Second
	DefaultWebSocketPingInterval    = 30 * time.Second
	DefaultWebSocketReadTimeout     = 90 * time.Second
	DefaultWebSocketMaxMessageBytes = 65536

	// Pool defaults
	DefaultPoolMaxIdle     = 64
	DefaultPoolIdleTimeout = 5 * time.Minute

	// Maintenance defaults
	DefaultMaintenanceEnabled  = true
	DefaultPruneSchedule       = "@every 1m"
	DefaultRetentionSchedule   = "0 3 * * *"
	DefaultAuditRetentionDays  = 30
	DefaultAuditMaxRecords     = int64(0)
	DefaultAuditMemoryMaxItems = 10000

	// Audit defaults
	DefaultAuditEnabled         = true
	DefaultAuditBackend         = "sqlite"
	DefaultSQLitePath           = "data/audit.db"
	DefaultSQLiteDriver         = "sqlite"
	DefaultSQLiteMaxOpenConns   = 10
	DefaultSQLiteMaxIdleConns   = 5
	DefaultSQLiteWALMode        = true
	DefaultSQLiteBusyTimeout    = 5 * time.Second
	DefaultMySQLMaxOpenConns    = 10
	DefaultMySQLMaxIdleConns    = 5
	DefaultMySQLConnMaxLifetime = 5 * time.Minute
	DefaultRecorderAsyncBuffer  = 1000
	DefaultRecorderWriteTimeout = 5 * time.Second

	// Logging defaults
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
	DefaultLogRedactPII = true

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "lifecycle"
	DefaultMetricsSubsystem = "server"

	// Tracing defaults
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingInsecure    = true
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingServiceName = "lifecycle"

	// Health defaults
	DefaultHealthEnabled       = true
	DefaultHealthLivenessPath  = "/health"
	DefaultHealthReadinessPath = "/ready"
	DefaultHealthCheckTimeout  = 2 * time.Second

	// Watch defaults
	DefaultWatchEnabled  = false
	DefaultWatchDebounce = 250 * time.Millisecond
)

// DefaultRequestDurationBuckets are request duration histogram buckets in
// seconds.
var DefaultRequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// DefaultBorrowedBuckets are histogram buckets for objects borrowed per
// request.
var DefaultBorrowedBuckets = []float64{0, 1, 2, 4, 8, 16, 32}

// Defaults returns a configuration with every field at its default value.
// LoadConfig decodes the file over it, so boolean settings that default to
// true can still be switched off in YAML.
func Defaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			WebSocket: WebSocketConfig{Enabled: DefaultWebSocketEnabled},
		},
		Maintenance: MaintenanceConfig{Enabled: DefaultMaintenanceEnabled},
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			SQLite:  SQLiteConfig{WALMode: DefaultSQLiteWALMode},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultLogRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{
				Enabled:  DefaultTracingEnabled,
				Insecure: DefaultTracingInsecure,
			},
			Health: HealthConfig{Enabled: DefaultHealthEnabled},
		},
		Watch: WatchConfig{Enabled: DefaultWatchEnabled},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any non-boolean fields that have zero
// values. It is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// WebSocket defaults
	ws := &cfg.Server.WebSocket
	if ws.Path == "" {
		ws.Path = DefaultWebSocketPath
	}
	if ws.WriteTimeout == 0 {
		ws.WriteTimeout = DefaultWebSocketWriteTimeout
	}
	if ws.PingInterval == 0 {
		ws.PingInterval = DefaultWebSocketPingInterval
	}
	if ws.ReadTimeout == 0 {
		ws.ReadTimeout = DefaultWebSocketReadTimeout
	}
	if ws.MaxMessageBytes == 0 {
		ws.MaxMessageBytes = DefaultWebSocketMaxMessageBytes
	}

	// Pool defaults
	applyPoolDefaults(&cfg.Controllers)
	for name, p := range cfg.Pools {
		applyPoolDefaults(&p)
		cfg.Pools[name] = p
	}

	// Maintenance defaults
	if cfg.Maintenance.PruneSchedule == "" {
		cfg.Maintenance.PruneSchedule = DefaultPruneSchedule
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Audit.SQLite.Driver == "" {
		cfg.Audit.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Audit.MySQL.MaxOpenConns == 0 {
		cfg.Audit.MySQL.MaxOpenConns = DefaultMySQLMaxOpenConns
	}
	if cfg.Audit.MySQL.MaxIdleConns == 0 {
		cfg.Audit.MySQL.MaxIdleConns = DefaultMySQLMaxIdleConns
	}
	if cfg.Audit.MySQL.ConnMaxLifetime == 0 {
		cfg.Audit.MySQL.ConnMaxLifetime = DefaultMySQLConnMaxLifetime
	}
	if cfg.Audit.Memory.MaxRecords == 0 {
		cfg.Audit.Memory.MaxRecords = DefaultAuditMemoryMaxItems
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}
	if cfg.Audit.Retention.RetentionDays == 0 {
		cfg.Audit.Retention.RetentionDays = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = DefaultRetentionSchedule
	}

	// Logging defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	m := &cfg.Telemetry.Metrics
	if m.Path == "" {
		m.Path = DefaultMetricsPath
	}
	if m.Namespace == "" {
		m.Namespace = DefaultMetricsNamespace
	}
	if m.Subsystem == "" {
		m.Subsystem = DefaultMetricsSubsystem
	}
	if len(m.RequestDurationBuckets) == 0 {
		m.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
	if len(m.BorrowedBuckets) == 0 {
		m.BorrowedBuckets = append([]float64(nil), DefaultBorrowedBuckets...)
	}

	// Tracing defaults
	tr := &cfg.Telemetry.Tracing
	if tr.Sampler == "" {
		tr.Sampler = DefaultTracingSampler
	}
	if tr.SampleRatio == 0 && tr.Sampler == "ratio" {
		tr.SampleRatio = DefaultTracingSampleRatio
	}
	if tr.Endpoint == "" {
		tr.Endpoint = DefaultTracingEndpoint
	}
	if tr.Timeout == 0 {
		tr.Timeout = DefaultTracingTimeout
	}
	if tr.ServiceName == "" {
		tr.ServiceName = DefaultTracingServiceName
	}

	// Health defaults
	h := &cfg.Telemetry.Health
	if h.LivenessPath == "" {
		h.LivenessPath = DefaultHealthLivenessPath
	}
	if h.ReadinessPath == "" {
		h.ReadinessPath = DefaultHealthReadinessPath
	}
	if h.CheckTimeout == 0 {
		h.CheckTimeout = DefaultHealthCheckTimeout
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}

func applyPoolDefaults(p *PoolConfig) {
	if p.MaxIdle == 0 {
		p.MaxIdle = DefaultPoolMaxIdle
	}
	if p.IdleTimeout == 0 {
		p.IdleTimeout = DefaultPoolIdleTimeout
	}
}
