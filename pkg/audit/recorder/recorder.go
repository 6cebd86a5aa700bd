package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/lifecycle/pkg/audit"
	"mercator-hq/lifecycle/pkg/config"
	"mercator-hq/lifecycle/pkg/controller"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled controls whether records are written at all.
	Enabled bool

	// AsyncBuffer is the number of records queued for writing. Records
	// arriving while the queue is full are dropped.
	AsyncBuffer int

	// WriteTimeout bounds a single storage write.
	WriteTimeout time.Duration

	// OnDrop is called for every dropped record, if set.
	OnDrop func()

	// Logger receives worker and drop logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// ConfigFrom converts the audit section of the configuration file.
func ConfigFrom(cfg config.AuditConfig) *Config {
	c := DefaultConfig()
	c.Enabled = cfg.Enabled
	if cfg.Recorder.AsyncBuffer > 0 {
		c.AsyncBuffer = cfg.Recorder.AsyncBuffer
	}
	if cfg.Recorder.WriteTimeout > 0 {
		c.WriteTimeout = cfg.Recorder.WriteTimeout
	}
	return c
}

// Recorder writes audit records asynchronously. It implements
// controller.Observer, so it can be handed straight to a Dispatcher.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger

	// now is replaced in tests
	now func() time.Time
}

var _ controller.Observer = (*Recorder)(nil)

// New creates a recorder writing to storage and starts its worker.
func New(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *audit.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "audit.recorder"),
		now:        time.Now,
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// RequestFinished queues a record for the finished request. It never blocks.
func (r *Recorder) RequestFinished(s controller.Summary) {
	if !r.config.Enabled {
		return
	}
	if err := r.Record(audit.FromSummary(s)); err != nil {
		r.logger.Debug("audit record dropped", "request_id", s.RequestID, "error", err)
	}
}

// Record queues record for writing, assigning an ID when it has none. It
// fails with ErrQueueFull when the queue has no room and with
// ErrRecorderClosed after Close.
func (r *Recorder) Record(record *audit.Record) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = r.now()
	}

	select {
	case <-r.done:
		return audit.NewRecorderError(record.RequestID, audit.ErrRecorderClosed)
	default:
	}

	select {
	case r.recordChan <- record:
		return nil
	default:
		r.logger.Warn("audit record channel full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		if r.config.OnDrop != nil {
			r.config.OnDrop()
		}
		return audit.NewRecorderError(record.RequestID, audit.ErrQueueFull)
	}
}

// Close stops accepting records, writes every queued one and waits for the
// worker to exit. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		close(r.done)
	})
	r.wg.Wait()
	return nil
}

// worker writes queued records until Close, then drains the queue.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					r.logger.Info("audit channel drained")
					return
				}
			}
		}
	}
}

// writeRecord stores one record with a timeout.
func (r *Recorder) writeRecord(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)

	r.logger.Debug("audit recorded",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"category", record.Category,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
