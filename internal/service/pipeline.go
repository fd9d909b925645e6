package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
)

// DisabledReason is reported when the pipeline is switched off in app_settings.
const DisabledReason = "disabled"

// RunRequest describes one trigger of the pipeline or retention engine.
type RunRequest struct {
	TriggerSource string
	Payload       json.RawMessage
}

// PipelineResult is the outcome of a pipeline pass.
type PipelineResult struct {
	RunID   string
	Summary *model.PipelineSummary
}

// PipelineServiceOptions groups dependencies for PipelineService.
type PipelineServiceOptions struct {
	Settings core.SettingsRepository // Required
	Stats    core.StatsRepository    // Required
	Selector *CandidateSelector      // Required
	Executor *StageExecutor          // Required
	Monitor  *JobRunMonitor          // Required
	Logger   *slog.Logger            // Optional
	Now      func() time.Time        // Optional: defaults to time.Now
}

// PipelineService runs the quick, deep and deepest stages in order, one item at a time.
type PipelineService struct {
	settings core.SettingsRepository
	stats    core.StatsRepository
	selector *CandidateSelector
	executor *StageExecutor
	monitor  *JobRunMonitor
	logger   *slog.Logger
	now      func() time.Time
}

// NewPipelineService constructs a PipelineService.
func NewPipelineService(opts PipelineServiceOptions) (*PipelineService, error) {
	switch {
	case opts.Settings == nil:
		return nil, errors.New("SettingsRepository is required")
	case opts.Stats == nil:
		return nil, errors.New("StatsRepository is required")
	case opts.Selector == nil:
		return nil, errors.New("CandidateSelector is required")
	case opts.Executor == nil:
		return nil, errors.New("StageExecutor is required")
	case opts.Monitor == nil:
		return nil, errors.New("JobRunMonitor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &PipelineService{
		settings: opts.Settings,
		stats:    opts.Stats,
		selector: opts.Selector,
		executor: opts.Executor,
		monitor:  opts.Monitor,
		logger:   logger.With("component", "pipeline_service"),
		now:      now,
	}, nil
}

// Run performs one pipeline pass tracked as a job run. Any error outside the per-item
// loop aborts the pass, fails the run and is returned.
func (s *PipelineService) Run(ctx context.Context, req RunRequest) (*PipelineResult, error) {
	run := s.monitor.Start(ctx, StartRunParams{
		JobName:       model.JobNamePipeline,
		TriggerSource: req.TriggerSource,
		Payload:       req.Payload,
	})
	result := &PipelineResult{RunID: run.ID, Summary: model.NewPipelineSummary()}

	if err := s.run(ctx, run, result.Summary); err != nil {
		s.logger.ErrorContext(ctx, "pipeline run failed", "job_run_id", run.ID, "error", err)
		s.monitor.Fail(ctx, run, err, result.Summary)
		return result, err
	}

	if result.Summary.DisabledReason != "" {
		s.monitor.Succeed(ctx, run, map[string]string{"skipped": result.Summary.DisabledReason})
		return result, nil
	}

	s.logger.InfoContext(ctx, "pipeline run finished",
		"job_run_id", run.ID,
		"total", result.Summary.Total,
		"succeeded", result.Summary.Succeeded,
		"failed", result.Summary.Failed,
		"skipped", result.Summary.Skipped,
	)
	s.monitor.Succeed(ctx, run, result.Summary)
	return result, nil
}

func (s *PipelineService) run(ctx context.Context, run RunHandle, summary *model.PipelineSummary) error {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.Enabled {
		s.logger.InfoContext(ctx, "pipeline disabled; skipping run", "job_run_id", run.ID)
		summary.DisabledReason = DisabledReason
		return nil
	}

	// Each stage re-selects from the store, so a post can advance several stages in one pass.
	for _, stage := range model.Stages() {
		stageSummary, err := s.runStage(ctx, run, stage, settings)
		summary.Record(stage, stageSummary)
		if err != nil {
			return fmt.Errorf("%s stage: %w", stage, err)
		}
	}

	day := s.now().UTC().Format(model.ResetDateLayout)
	if err := s.stats.IncrementDaily(ctx, core.DailyStatsParams{
		Day:       day,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
	}); err != nil {
		return fmt.Errorf("persist daily stats: %w", err)
	}
	return nil
}

func (s *PipelineService) runStage(
	ctx context.Context,
	run RunHandle,
	stage model.Stage,
	settings model.RunSettings,
) (model.StageSummary, error) {
	candidates, err := s.selector.Select(ctx, stage, settings)
	if err != nil {
		return model.StageSummary{}, err
	}
	s.logger.DebugContext(ctx, "stage candidates selected", "stage", stage, "count", len(candidates))

	return forEachIsolated(ctx, candidates, func(ctx context.Context, post *model.Post) ItemOutcome {
		return s.runItem(ctx, run, stage, post)
	})
}

func (s *PipelineService) runItem(ctx context.Context, run RunHandle, stage model.Stage, candidate *model.Post) ItemOutcome {
	post, reason, err := s.selector.Revalidate(ctx, stage, candidate.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "revalidation failed", "stage", stage, "post_id", candidate.ID, "error", err)
		return Failed(err)
	}
	if reason != "" {
		s.logger.InfoContext(ctx, "candidate no longer eligible; skipping",
			"stage", stage,
			"post_id", candidate.ID,
			"reason", reason,
		)
		return Skipped(reason)
	}

	acquired, release := s.selector.Claim(ctx, stage, post.ID, run.ID)
	if !acquired {
		s.logger.InfoContext(ctx, "candidate claimed elsewhere; skipping", "stage", stage, "post_id", post.ID)
		return Skipped(SkipClaimed)
	}
	defer release()

	return s.executor.Execute(ctx, stage, post)
}

// forEachIsolated applies fn to every item in order. An item's failure, including a panic,
// is folded into the summary and never stops the loop; only context cancellation does.
func forEachIsolated[T any](
	ctx context.Context,
	items []T,
	fn func(context.Context, T) ItemOutcome,
) (model.StageSummary, error) {
	var summary model.StageSummary
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		isolate(ctx, item, fn).apply(&summary)
	}
	return summary, nil
}

func isolate[T any](ctx context.Context, item T, fn func(context.Context, T) ItemOutcome) (out ItemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Failed(fmt.Errorf("panic: %v", r))
		}
	}()
	return fn(ctx, item)
}
