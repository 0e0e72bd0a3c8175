// Package jobs runs the process-internal background work on cron schedules.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/complaintdesk/internal/monitoring"
	"github.com/charlesng35/complaintdesk/pkg/logger"
	"github.com/charlesng35/complaintdesk/pkg/metrics"
)

// Job is a named unit of background work.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Runner schedules jobs with cron. A job never overlaps with itself: a tick that fires
// while the previous run is still going is skipped.
type Runner struct {
	cron *cron.Cron
	log  *zap.Logger

	mu      sync.Mutex
	jobs    []Job
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customises the Runner.
type Option func(*Runner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Runner) {
		if c != nil {
			r.cron = c
		}
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: logger.WithModule("jobs")}
	for _, opt := range opts {
		opt(r)
	}
	if r.cron == nil {
		r.cron = cron.New(
			cron.WithLogger(cron.DiscardLogger),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		)
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Register validates and schedules job. It must be called before Start.
func (r *Runner) Register(job Job) error {
	job.Name = strings.TrimSpace(job.Name)
	if job.Name == "" {
		return errors.New("jobs: name is required")
	}
	if job.Run == nil {
		return fmt.Errorf("jobs: %s has no run function", job.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("jobs: cannot register %s after start", job.Name)
	}

	if _, err := r.cron.AddFunc(job.Schedule, func() { _ = r.execute(r.ctx, job) }); err != nil {
		return fmt.Errorf("jobs: schedule %s (%q): %w", job.Name, job.Schedule, err)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Start launches the scheduler if any job is registered.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || len(r.jobs) == 0 {
		return
	}
	r.started = true
	r.cron.Start()
	r.log.Info("background jobs started", zap.Int("jobs", len(r.jobs)))
}

// Stop halts the scheduler and cancels running jobs. The returned context is done once
// in-flight jobs have returned.
func (r *Runner) Stop() context.Context {
	r.cancel()
	return r.cron.Stop()
}

// RunOnce executes every registered job sequentially and returns their combined error.
func (r *Runner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	jobs := append([]Job(nil), r.jobs...)
	r.mu.Unlock()

	var errs error
	for _, job := range jobs {
		errs = multierr.Append(errs, r.execute(ctx, job))
	}
	return errs
}

func (r *Runner) execute(ctx context.Context, job Job) error {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
		r.log.Warn("background job failed", zap.String("job", job.Name), zap.Duration("duration", elapsed), zap.Error(err))
	} else {
		r.log.Debug("background job finished", zap.String("job", job.Name), zap.Duration("duration", elapsed))
	}
	metrics.JobDuration.WithLabelValues(job.Name, result).Observe(elapsed.Seconds())
	monitoring.RecordJob(job.Name, err, elapsed, start)

	if err != nil {
		return fmt.Errorf("%s: %w", job.Name, err)
	}
	return nil
}
