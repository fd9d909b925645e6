// Package ticker triggers pipeline and retention runs in-process on fixed intervals.
package ticker

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/narrativewatch/triage/config"
	"github.com/narrativewatch/triage/internal/service"
)

// TriggerSource is recorded on every job run started by the ticker.
const TriggerSource = "ticker"

// PipelineRunner executes one pipeline pass.
type PipelineRunner interface {
	Run(ctx context.Context, req service.RunRequest) (*service.PipelineResult, error)
}

// RetentionRunner executes one retention pass.
type RetentionRunner interface {
	Run(ctx context.Context, req service.RunRequest) (*service.RetentionResult, error)
}

// Task is one periodically executed job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Pipeline  PipelineRunner  // Optional: nil skips the pipeline loop
	Retention RetentionRunner // Optional: nil skips the retention loop
	Config    config.TickerConfig
	Logger    *slog.Logger
}

// Runner drives one loop per task until the context is cancelled.
type Runner struct {
	tasks  []Task
	logger *slog.Logger
}

// NewRunner creates a Runner for the configured pipeline and retention loops.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	cfg := opts.Config
	cfg.Sanitize()

	var tasks []Task
	if opts.Pipeline != nil {
		tasks = append(tasks, Task{
			Name:     "pipeline",
			Interval: cfg.PipelineInterval,
			Run: func(ctx context.Context) error {
				_, err := opts.Pipeline.Run(ctx, service.RunRequest{TriggerSource: TriggerSource})
				return err
			},
		})
	}
	if opts.Retention != nil {
		tasks = append(tasks, Task{
			Name:     "retention",
			Interval: cfg.RetentionInterval,
			Run: func(ctx context.Context) error {
				_, err := opts.Retention.Run(ctx, service.RunRequest{TriggerSource: TriggerSource})
				return err
			},
		})
	}
	return NewTaskRunner(opts.Logger, tasks...)
}

// NewTaskRunner creates a Runner for arbitrary tasks.
func NewTaskRunner(logger *slog.Logger, tasks ...Task) (*Runner, error) {
	if len(tasks) == 0 {
		return nil, errors.New("at least one task is required")
	}
	for _, t := range tasks {
		if t.Run == nil || t.Interval <= 0 {
			return nil, fmt.Errorf("task %q needs a run func and a positive interval", t.Name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{tasks: tasks, logger: logger.With("component", "ticker")}, nil
}

// Run starts every loop and blocks until ctx is cancelled. Graceful shutdown returns nil.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range r.tasks {
		g.Go(func() error { return r.loop(gctx, task) })
	}
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, task Task) error {
	r.logger.InfoContext(ctx, "starting ticker loop", "task", task.Name, "interval", task.Interval)

	// Instances started together would otherwise hit the classifier in lockstep.
	if !waitWithJitter(ctx, task.Interval) {
		return nil
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	r.runOnce(ctx, task)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "ticker loop stopping", "task", task.Name, "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx, task)
		}
	}
}

// runOnce runs the task; run failures are already tracked and alerted by the services.
func (r *Runner) runOnce(ctx context.Context, task Task) {
	start := time.Now()
	if err := task.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.WarnContext(ctx, "ticker run failed",
			"task", task.Name,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}
	r.logger.DebugContext(ctx, "ticker run finished", "task", task.Name, "duration", time.Since(start))
}

// waitWithJitter sleeps for a random delay up to 10% of interval.
// It returns false when ctx ended first.
func waitWithJitter(ctx context.Context, interval time.Duration) bool {
	maxJitter := int64(interval / 10)
	if maxJitter <= 0 {
		return ctx.Err() == nil
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ctx.Err() == nil
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
