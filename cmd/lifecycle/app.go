package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"mercator-hq/lifecycle/pkg/audit"
	"mercator-hq/lifecycle/pkg/audit/recorder"
	"mercator-hq/lifecycle/pkg/audit/retention"
	"mercator-hq/lifecycle/pkg/audit/storage"
	"mercator-hq/lifecycle/pkg/config"
	"mercator-hq/lifecycle/pkg/controller"
	"mercator-hq/lifecycle/pkg/maintenance"
	"mercator-hq/lifecycle/pkg/output"
	"mercator-hq/lifecycle/pkg/pool"
	"mercator-hq/lifecycle/pkg/server"
	"mercator-hq/lifecycle/pkg/telemetry/health"
	"mercator-hq/lifecycle/pkg/telemetry/logging"
	"mercator-hq/lifecycle/pkg/telemetry/metrics"
	"mercator-hq/lifecycle/pkg/telemetry/tracing"
)

// bufferPoolName is the pool of scratch buffers handlers borrow.
const bufferPoolName = "buffers"

// app holds every long-lived component of a running server.
type app struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	checker *health.Checker

	pools   *pool.Manager
	buffers *pool.Pool[*bytes.Buffer]

	auditStore audit.Storage
	recorder   *recorder.Recorder
	scheduler  *maintenance.Scheduler

	server *server.Server
}

// newApp builds the components described by cfg. On error everything
// already built is closed.
func newApp(cfg *config.Config, logger *logging.Logger) (_ *app, err error) {
	a := &app{
		logger: logger,
		pools:  pool.NewManager(),
	}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	slogger := logger.Slog()

	controllers := controller.NewPool(slogger, poolConfig(cfg.Controllers))
	a.buffers = pool.New(bufferPoolName, func() (*bytes.Buffer, error) {
		return new(bytes.Buffer), nil
	}, poolConfig(cfg.Pools[bufferPoolName]))

	for _, p := range []pool.Managed{controllers, a.buffers} {
		if err := a.pools.Register(p); err != nil {
			return nil, err
		}
	}

	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	if err := a.metrics.RegisterPools(a.pools); err != nil {
		return nil, fmt.Errorf("failed to register pool metrics: %w", err)
	}

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	observers := []controller.Observer{a.metrics}
	if cfg.Audit.Enabled {
		a.auditStore, err = storage.Open(cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}
		rcfg := recorder.ConfigFrom(cfg.Audit)
		rcfg.OnDrop = a.metrics.RecordAuditDropped
		rcfg.Logger = slogger
		a.recorder = recorder.New(a.auditStore, rcfg)
		observers = append(observers, a.recorder)
	}

	a.checker = health.New(cfg.Telemetry.Health.CheckTimeout)
	a.checker.RegisterCheck("pools", health.PoolsCheck(a.pools))
	if a.auditStore != nil {
		a.checker.RegisterCheck("audit_storage", health.PingCheck(a.auditStore))
	}
	if limit := cfg.Telemetry.Health.MaxMemoryPercent; limit > 0 {
		a.checker.RegisterCheck("memory", health.MemoryCheck(limit))
	}

	if cfg.Maintenance.Enabled {
		a.scheduler = maintenance.New(slogger, a.metrics)
		if err := a.scheduler.Add(maintenance.PoolPruneJob(cfg.Maintenance.PruneSchedule, a.pools)); err != nil {
			return nil, err
		}
		if a.auditStore != nil && cfg.Audit.Retention.PruneSchedule != "" {
			pcfg := retention.ConfigFrom(cfg.Audit.Retention)
			pcfg.Logger = slogger
			pruner := retention.NewPruner(a.auditStore, pcfg)
			if err := a.scheduler.Add(maintenance.RetentionJob(cfg.Audit.Retention.PruneSchedule, pruner)); err != nil {
				return nil, err
			}
		}
	}

	opts := []server.Option{
		server.WithLogger(slogger),
		server.WithHealth(a.checker, cfg.Telemetry.Health, health.NewVersionInfo(Version, GitCommit, BuildDate)),
	}
	if a.tracer.Enabled() {
		opts = append(opts, server.WithTracer(a.tracer))
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(cfg.Telemetry.Metrics.Path, a.metrics.Handler()))
	}
	var renderer *output.TemplateRenderer
	if cfg.Server.TemplatesGlob != "" {
		renderer, err = output.LoadTemplates(cfg.Server.TemplatesGlob)
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
		opts = append(opts, server.WithRenderer(renderer))
	}

	dispatcher := controller.NewDispatcher(controllers, slogger, observers...)
	a.server = server.NewServer(&cfg.Server, dispatcher, opts...)

	if err := a.registerHandlers(renderer != nil); err != nil {
		return nil, err
	}
	return a, nil
}

// reload applies the parts of a reloaded configuration that can change at
// runtime: pool limits and the log level.
func (a *app) reload(cfg *config.Config) {
	ok := true

	if unknown := a.pools.ApplyLimits(poolLimits(cfg)); len(unknown) > 0 {
		a.logger.Warn("ignoring limits for unknown pools", "pools", unknown)
	}
	if err := a.logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
		a.logger.Error("failed to apply log level", "error", err)
		ok = false
	}

	a.metrics.RecordConfigReload(ok)
	a.logger.Info("configuration applied", "pools", a.pools.Names())
}

// close stops every component in dependency order: the scheduler first, then
// the recorder so queued records reach storage, then storage and pools.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit recorder: %w", err))
		}
	}
	if a.auditStore != nil {
		if err := a.auditStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit storage: %w", err))
		}
	}
	if err := a.pools.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// poolConfig converts a pool section of the configuration file.
func poolConfig(cfg config.PoolConfig) pool.Config {
	return pool.Config{
		MaxIdle:     cfg.MaxIdle,
		MaxActive:   cfg.MaxActive,
		IdleTimeout: cfg.IdleTimeout,
	}
}

// poolLimits maps every configured pool name to its limits.
func poolLimits(cfg *config.Config) map[string]pool.Config {
	limits := map[string]pool.Config{
		controller.PoolName: poolConfig(cfg.Controllers),
	}
	for name, p := range cfg.Pools {
		limits[name] = poolConfig(p)
	}
	return limits
}
