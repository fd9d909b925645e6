package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
	obserrors "github.com/narrativewatch/triage/internal/observability/errors"
	"github.com/narrativewatch/triage/internal/observability/metrics"
	"github.com/narrativewatch/triage/internal/observability/notify"
	"github.com/narrativewatch/triage/internal/observability/statsd"
	"github.com/narrativewatch/triage/internal/util"
)

// RunFailureNotifier dispatches a failed run alert to every configured channel.
type RunFailureNotifier interface {
	NotifyRunFailure(ctx context.Context, payload notify.RunFailurePayload)
}

// JobRunMonitorOptions groups dependencies for JobRunMonitor.
type JobRunMonitorOptions struct {
	Repo     core.JobRunRepository // Required
	Notifier RunFailureNotifier    // Optional: nil disables alerts
	Metrics  statsd.Sink           // Optional
	Logger   *slog.Logger          // Optional
	Now      func() time.Time      // Optional: defaults to time.Now
}

// JobRunMonitor tracks every pipeline and retention invocation as a job run.
// Tracking failures are logged and never block the functional work.
type JobRunMonitor struct {
	repo     core.JobRunRepository
	notifier RunFailureNotifier
	metrics  statsd.Sink
	logger   *slog.Logger
	now      func() time.Time
}

// NewJobRunMonitor constructs a JobRunMonitor.
func NewJobRunMonitor(opts JobRunMonitorOptions) (*JobRunMonitor, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRunRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &JobRunMonitor{
		repo:     opts.Repo,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "job_run_monitor"),
		now:      now,
	}, nil
}

// StartRunParams describes a new job run.
type StartRunParams struct {
	JobName       string
	TriggerSource string
	Payload       json.RawMessage
}

// RunHandle identifies a started run. An empty ID means the run is untracked.
type RunHandle struct {
	ID            string
	JobName       string
	TriggerSource string
	StartedAt     time.Time
}

// Start inserts a running job run. On failure it logs and returns a handle with an empty ID.
func (m *JobRunMonitor) Start(ctx context.Context, params StartRunParams) RunHandle {
	trigger := params.TriggerSource
	if trigger == "" {
		trigger = "unknown"
	}
	handle := RunHandle{JobName: params.JobName, TriggerSource: trigger, StartedAt: m.now()}

	payload := params.Payload
	if len(payload) > 0 && !json.Valid(payload) {
		m.logger.WarnContext(ctx, "dropping invalid job run payload", "job_name", params.JobName)
		payload = nil
	}

	run, err := m.repo.Create(ctx, &model.CreateJobRunRequest{
		JobName:       params.JobName,
		TriggerSource: trigger,
		Payload:       payload,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to start job run; continuing untracked",
			"job_name", params.JobName,
			"trigger_source", trigger,
			"error", err,
		)
		return handle
	}

	handle.ID = run.ID
	m.logger.InfoContext(ctx, "job run started",
		"job_run_id", run.ID,
		"job_name", params.JobName,
		"trigger_source", trigger,
	)
	return handle
}

// FinishRunParams describes how a run ended.
type FinishRunParams struct {
	Status     model.JobRunStatus
	HTTPStatus int
	Err        error
	Metadata   any
}

// Succeed closes the run as success with HTTP 200 and the given metadata.
func (m *JobRunMonitor) Succeed(ctx context.Context, h RunHandle, metadata any) {
	m.Finish(ctx, h, FinishRunParams{Status: model.JobRunStatusSuccess, HTTPStatus: http.StatusOK, Metadata: metadata})
}

// Fail closes the run as failed with HTTP 500 and dispatches one alert.
func (m *JobRunMonitor) Fail(ctx context.Context, h RunHandle, err error, metadata any) {
	m.Finish(ctx, h, FinishRunParams{
		Status:     model.JobRunStatusFailed,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
		Metadata:   metadata,
	})
}

// Finish moves the run to a terminal status. Untracked handles only emit metrics.
// A failed status dispatches exactly one alert, and only when this call performed the transition.
func (m *JobRunMonitor) Finish(ctx context.Context, h RunHandle, params FinishRunParams) {
	// The caller's context may already be canceled; closing the row must still happen.
	ctx = context.WithoutCancel(ctx)

	if !params.Status.Terminal() {
		m.logger.ErrorContext(ctx, "refusing non-terminal job run status",
			"job_run_id", h.ID,
			"status", params.Status,
		)
		return
	}

	finishedAt := m.now()
	m.emitMetrics(h, params, finishedAt)
	m.logger.InfoContext(ctx, "job run finished",
		"job_run_id", h.ID,
		"job_name", h.JobName,
		"status", params.Status,
		"duration", util.FormatDuration(runDuration(h, finishedAt)),
	)

	if h.ID == "" {
		return
	}

	var errMsg *string
	if params.Err != nil {
		msg := params.Err.Error()
		errMsg = &msg
	}
	metadata := encodeMetadata(params.Metadata)

	transitioned, err := m.repo.Complete(ctx, &model.CompleteJobRunRequest{
		ID:           h.ID,
		Status:       params.Status,
		HTTPStatus:   params.HTTPStatus,
		ErrorMessage: errMsg,
		Metadata:     metadata,
		FinishedAt:   finishedAt,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to finish job run",
			"job_run_id", h.ID,
			"status", params.Status,
			"error", err,
		)
	}

	if params.Status != model.JobRunStatusFailed {
		return
	}
	// A row that was already terminal has had its alert.
	if err == nil && !transitioned {
		return
	}
	m.dispatchAlert(ctx, h, params, metadata, finishedAt)
}

func (m *JobRunMonitor) dispatchAlert(
	ctx context.Context,
	h RunHandle,
	params FinishRunParams,
	metadata json.RawMessage,
	at time.Time,
) {
	if m.notifier == nil {
		return
	}
	payload := notify.RunFailurePayload{
		RunID:         h.ID,
		JobName:       h.JobName,
		TriggerSource: h.TriggerSource,
		Severity:      notify.SeverityCritical,
		OccurredAt:    at,
		Metadata:      metadata,
	}
	if params.Err != nil {
		payload.Error = params.Err.Error()
		payload.ErrorClass = obserrors.Classify(params.Err)
	}
	m.notifier.NotifyRunFailure(ctx, payload)
}

func (m *JobRunMonitor) emitMetrics(h RunHandle, params FinishRunParams, finishedAt time.Time) {
	result := metrics.ResultSuccess
	if params.Status == model.JobRunStatusFailed {
		result = metrics.ResultError
	}
	metrics.EmitRun(m.metrics, metrics.RunMetric{
		JobName:  h.JobName,
		Result:   result,
		Duration: runDuration(h, finishedAt),
		Err:      params.Err,
	})
}

func runDuration(h RunHandle, finishedAt time.Time) time.Duration {
	if h.StartedAt.IsZero() {
		return 0
	}
	return finishedAt.Sub(h.StartedAt)
}

func encodeMetadata(v any) json.RawMessage {
	switch md := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		if json.Valid(md) {
			return md
		}
		return nil
	default:
		raw, err := json.Marshal(md)
		if err != nil {
			return nil
		}
		return raw
	}
}
