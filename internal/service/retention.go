package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/narrativewatch/triage/config"
	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
	"github.com/narrativewatch/triage/internal/observability/metrics"
	"github.com/narrativewatch/triage/internal/observability/statsd"
)

// RetentionResult is the outcome of a retention pass.
type RetentionResult struct {
	RunID   string
	Summary *model.RetentionSummary
}

// RetentionServiceOptions groups dependencies for RetentionService.
type RetentionServiceOptions struct {
	Repo     core.RetentionRepository      // Required
	Settings core.SettingsRepository       // Required
	History  core.CleanupHistoryRepository // Optional: nil skips the audit row
	Monitor  *JobRunMonitor                // Required
	Config   config.RetentionConfig
	Metrics  statsd.Sink      // Optional
	Logger   *slog.Logger     // Optional
	Now      func() time.Time // Optional: defaults to time.Now
}

// RetentionService archives important aging posts, deletes disposable ones, resets the
// rolling counters once per day and purges the stale review queue.
type RetentionService struct {
	repo     core.RetentionRepository
	settings core.SettingsRepository
	history  core.CleanupHistoryRepository
	monitor  *JobRunMonitor
	config   config.RetentionConfig
	metrics  statsd.Sink
	logger   *slog.Logger
	now      func() time.Time
}

// NewRetentionService constructs a RetentionService.
func NewRetentionService(opts RetentionServiceOptions) (*RetentionService, error) {
	switch {
	case opts.Repo == nil:
		return nil, errors.New("RetentionRepository is required")
	case opts.Settings == nil:
		return nil, errors.New("SettingsRepository is required")
	case opts.Monitor == nil:
		return nil, errors.New("JobRunMonitor is required")
	}
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RetentionService{
		repo:     opts.Repo,
		settings: opts.Settings,
		history:  opts.History,
		monitor:  opts.Monitor,
		config:   cfg,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "retention_service"),
		now:      now,
	}, nil
}

// Run performs one retention pass tracked as a job run.
// When nothing is old enough only archive and delete are skipped; the daily
// counter reset and review queue cleanup still run.
func (s *RetentionService) Run(ctx context.Context, req RunRequest) (*RetentionResult, error) {
	run := s.monitor.Start(ctx, StartRunParams{
		JobName:       model.JobNameRetention,
		TriggerSource: req.TriggerSource,
		Payload:       req.Payload,
	})
	now := s.now()
	summary := &model.RetentionSummary{TimestampField: string(s.config.TimestampField)}
	result := &RetentionResult{RunID: run.ID, Summary: summary}

	runErr := s.run(ctx, now, summary)

	var errMsg *string
	if runErr != nil {
		msg := runErr.Error()
		errMsg = &msg
	}
	s.recordHistory(ctx, summary, errMsg)

	if runErr != nil {
		s.logger.ErrorContext(ctx, "retention run failed", "job_run_id", run.ID, "error", runErr)
		s.monitor.Fail(ctx, run, runErr, summary)
		return result, runErr
	}

	metrics.EmitRetentionPosts(s.metrics, "archive", summary.PostsArchived)
	metrics.EmitRetentionPosts(s.metrics, "delete", summary.PostsDeleted)
	s.logger.InfoContext(ctx, "retention run finished",
		"job_run_id", run.ID,
		"posts_archived", summary.PostsArchived,
		"posts_deleted", summary.PostsDeleted,
		"queue_cleaned", summary.QueueCleaned,
		"old_posts", summary.OldPosts,
		"nothing_to_do", summary.NothingToDo,
	)
	s.monitor.Succeed(ctx, run, summary)
	return result, nil
}

func (s *RetentionService) run(ctx context.Context, now time.Time, summary *model.RetentionSummary) error {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	summary.Cutoff = settings.Cutoff(now).UTC()

	scope := core.OlderThanParams{Field: summary.TimestampField, Cutoff: summary.Cutoff}
	if summary.TotalPosts, err = s.repo.CountPosts(ctx); err != nil {
		return err
	}
	if summary.OldPosts, err = s.repo.CountOlderThan(ctx, scope); err != nil {
		return err
	}

	if summary.OldPosts == 0 {
		summary.NothingToDo = true
	} else {
		if summary.PostsArchived, err = s.sweep(ctx, scope, model.RetentionArchive, s.repo.ArchiveByIDs); err != nil {
			return fmt.Errorf("archive phase: %w", err)
		}
		// A fresh read: anything archived above is no longer a delete candidate.
		if summary.PostsDeleted, err = s.sweep(ctx, scope, model.RetentionDelete, s.repo.DeleteByIDs); err != nil {
			return fmt.Errorf("delete phase: %w", err)
		}
	}

	if settings.CountersDue(now) {
		day := now.UTC().Format(model.ResetDateLayout)
		if err := s.repo.ResetRollingCounters(ctx, day); err != nil {
			return fmt.Errorf("counter reset phase: %w", err)
		}
		summary.CountersReset = true
	}

	if summary.QueueCleaned, err = s.repo.CleanupStaleReviewQueue(ctx); err != nil {
		return fmt.Errorf("queue cleanup phase: %w", err)
	}
	return nil
}

// sweep pages through old, non-archived posts by id and applies mutate to every
// page's posts whose policy outcome equals want.
func (s *RetentionService) sweep(
	ctx context.Context,
	scope core.OlderThanParams,
	want model.RetentionOutcome,
	mutate func(context.Context, []string) (int, error),
) (int, error) {
	var (
		affected int
		afterID  string
	)
	for {
		page, err := s.repo.ListOlderThan(ctx, core.ListOlderThanParams{
			OlderThanParams: scope,
			AfterID:         afterID,
			Limit:           s.config.BatchSize,
		})
		if err != nil {
			return affected, err
		}
		if len(page) == 0 {
			return affected, nil
		}

		ids := make([]string, 0, len(page))
		for _, p := range page {
			ts, ok := retentionTimestamp(p, scope.Field)
			if ok && p.RetentionOutcome(ts, scope.Cutoff) == want {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) > 0 {
			n, err := mutate(ctx, ids)
			if err != nil {
				return affected, err
			}
			affected += n
		}

		afterID = page[len(page)-1].ID
		if len(page) < s.config.BatchSize {
			return affected, nil
		}
	}
}

// retentionTimestamp returns the timestamp the cutoff applies to. A post that was never
// published has no publish time and is never old by that measure.
func retentionTimestamp(p *model.Post, field string) (time.Time, bool) {
	if field == string(config.TimestampFieldPublishedAt) {
		if p.PublishedAt == nil {
			return time.Time{}, false
		}
		return *p.PublishedAt, true
	}
	return p.CreatedAt, true
}

func (s *RetentionService) recordHistory(ctx context.Context, summary *model.RetentionSummary, errMsg *string) {
	if s.history == nil {
		return
	}
	rec := summary.History(errMsg == nil, errMsg)
	if err := s.history.Insert(context.WithoutCancel(ctx), &rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to write cleanup history", "error", err)
	}
}
