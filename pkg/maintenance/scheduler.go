package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrSchedulerRunning is returned by Add once the scheduler has started.
var ErrSchedulerRunning = errors.New("maintenance scheduler already running")

// ErrUnknownJob is returned by RunNow for a job that was never added.
var ErrUnknownJob = errors.New("unknown maintenance job")

// Job is a named task run on a cron schedule. Run returns how many items it
// removed.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) (int, error)
}

// Reporter receives the outcome of every job run.
// *metrics.Collector implements it.
type Reporter interface {
	RecordMaintenance(job string, pruned int, ok bool)
}

// Scheduler runs maintenance jobs on cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	logger   *slog.Logger

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	running bool
}

// New creates a scheduler. A nil reporter discards job outcomes.
func New(logger *slog.Logger, reporter Reporter) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "maintenance.scheduler")

	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		reporter: reporter,
		logger:   logger,
		jobs:     make(map[string]Job),
		entries:  make(map[string]cron.EntryID),
	}
}

// Add validates job's schedule and registers it. Jobs must be added before
// Start.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("maintenance job needs a name and a run function")
	}
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("maintenance job %q already added", job.Name)
	}

	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}

	s.jobs[job.Name] = job
	return nil
}

// Start begins running jobs. Job runs receive ctx, and the scheduler stops
// when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}
	if len(s.jobs) == 0 {
		s.logger.Info("no maintenance jobs configured, skipping scheduler")
		return nil
	}

	for name, job := range s.jobs {
		id, err := s.cron.AddFunc(job.Schedule, func() {
			_, _ = s.run(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", name, err)
		}
		s.entries[name] = id
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("maintenance scheduler started", "jobs", len(s.jobs))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunNow runs the named job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job)
}

// run executes job once and reports the outcome.
func (s *Scheduler) run(ctx context.Context, job Job) (int, error) {
	start := time.Now()

	removed, err := job.Run(ctx)
	if s.reporter != nil {
		s.reporter.RecordMaintenance(job.Name, removed, err == nil)
	}
	if err != nil {
		s.logger.Error("maintenance job failed",
			"job", job.Name,
			"error", err,
		)
		return removed, err
	}

	if removed > 0 {
		s.logger.Info("maintenance job completed",
			"job", job.Name,
			"removed", removed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		s.logger.Debug("maintenance job completed, nothing removed", "job", job.Name)
	}
	return removed, nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	s.running = false
	s.logger.Info("maintenance scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled run of the named job.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	if id, ok := s.entries[name]; ok && s.running {
		return s.cron.Entry(id).Next, true
	}
	schedule, err := cron.ParseStandard(job.Schedule)
	if err != nil {
		return time.Time{}, false
	}
	return schedule.Next(time.Now()), true
}

// cronLogger routes cron's own log lines to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
