package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/narrativewatch/triage/internal/adapters/classifier"
	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
	"github.com/narrativewatch/triage/internal/observability/metrics"
	"github.com/narrativewatch/triage/internal/observability/statsd"
)

// OutcomeKind is the result of executing one stage for one post.
type OutcomeKind int

const (
	// OutcomeSucceeded means the classifier accepted and processed the post.
	OutcomeSucceeded OutcomeKind = iota
	// OutcomeSkipped is a benign condition; it never counts as a failure.
	OutcomeSkipped
	// OutcomeFailed is an item failure; the post stays eligible for the next run.
	OutcomeFailed
)

// ItemOutcome describes how one item ended.
type ItemOutcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

// Succeeded returns a success outcome.
func Succeeded() ItemOutcome { return ItemOutcome{Kind: OutcomeSucceeded} }

// Skipped returns a benign skip with the given reason.
func Skipped(reason string) ItemOutcome { return ItemOutcome{Kind: OutcomeSkipped, Reason: reason} }

// Failed returns an item failure.
func Failed(err error) ItemOutcome { return ItemOutcome{Kind: OutcomeFailed, Err: err} }

func (o ItemOutcome) apply(s *model.StageSummary) {
	s.Total++
	switch o.Kind {
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

func (o ItemOutcome) metricResult() string {
	switch o.Kind {
	case OutcomeSucceeded:
		return metrics.ResultSuccess
	case OutcomeSkipped:
		return metrics.ResultSkipped
	default:
		return metrics.ResultError
	}
}

// benignReason reports whether a classifier error is a recognised benign condition.
// Only 4xx answers qualify. A missing post is benign on every stage; eligibility races
// only on the deepest stage.
func benignReason(stage model.Stage, err error) (string, bool) {
	se, ok := classifier.AsStatusError(err)
	if !ok || se.StatusCode < 400 || se.StatusCode >= 500 {
		return "", false
	}
	body := strings.ToLower(se.Body)
	if se.StatusCode == http.StatusNotFound || strings.Contains(body, "post not found") {
		return SkipNotFound, true
	}
	if stage == model.StageDeepest &&
		(strings.Contains(body, "not yet eligible") || strings.Contains(body, "not eligible")) {
		return SkipNotEligible, true
	}
	return "", false
}

// StageExecutorOptions groups dependencies for StageExecutor.
type StageExecutorOptions struct {
	Client  core.ClassificationClient // Required
	Meter   *UsageMeter               // Optional
	Metrics statsd.Sink               // Optional
	Logger  *slog.Logger              // Optional
}

// StageExecutor sends one post through one stage of the external classifier.
// It never writes classification fields itself.
type StageExecutor struct {
	client  core.ClassificationClient
	meter   *UsageMeter
	metrics statsd.Sink
	logger  *slog.Logger
}

// NewStageExecutor constructs a StageExecutor.
func NewStageExecutor(opts StageExecutorOptions) (*StageExecutor, error) {
	if opts.Client == nil {
		return nil, errors.New("ClassificationClient is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StageExecutor{
		client:  opts.Client,
		meter:   opts.Meter,
		metrics: opts.Metrics,
		logger:  logger.With("component", "stage_executor"),
	}, nil
}

// Execute runs stage for post and writes one usage row per call. No retries: a failed
// item is picked up again by a later run.
func (e *StageExecutor) Execute(ctx context.Context, stage model.Stage, post *model.Post) ItemOutcome {
	req := core.ClassifyRequest{Stage: stage, PostID: post.ID}
	if stage == model.StageDeepest {
		req.DeepAnalyzedAt = post.DeepAnalyzedAt
	}

	res, err := e.client.Classify(ctx, req)
	e.recordUsage(ctx, stage, post.ID, res, err)

	outcome := e.classify(ctx, stage, post.ID, err)
	metrics.EmitItem(e.metrics, string(stage), outcome.metricResult())
	return outcome
}

func (e *StageExecutor) classify(ctx context.Context, stage model.Stage, postID string, err error) ItemOutcome {
	if err == nil {
		e.logger.DebugContext(ctx, "stage completed", "stage", stage, "post_id", postID)
		return Succeeded()
	}
	if reason, ok := benignReason(stage, err); ok {
		level := slog.LevelInfo
		if reason == SkipNotEligible {
			level = slog.LevelWarn
		}
		e.logger.Log(ctx, level, "benign classifier response; skipping",
			"stage", stage,
			"post_id", postID,
			"reason", reason,
		)
		return Skipped(reason)
	}
	e.logger.ErrorContext(ctx, "stage failed",
		"stage", stage,
		"post_id", postID,
		"error", err,
	)
	return Failed(err)
}

func (e *StageExecutor) recordUsage(ctx context.Context, stage model.Stage, postID string, res *core.ClassifyResult, err error) {
	if res == nil {
		res = &core.ClassifyResult{}
	}
	metrics.EmitClassifierLatency(e.metrics, string(stage), res.Latency)
	if e.meter == nil {
		return
	}
	status := model.UsageStatusSuccess
	if err != nil {
		status = model.UsageStatusError
	}
	e.meter.Record(ctx, UsageEntry{
		Endpoint: stage.Endpoint(),
		Model:    res.Model,
		Usage:    res.Usage,
		Latency:  res.Latency,
		Status:   status,
		PostID:   postID,
	})
}
