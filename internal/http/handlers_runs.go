package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/narrativewatch/triage/internal/domain/model"
	"github.com/narrativewatch/triage/internal/service"
)

const (
	// HeaderTriggerSource names what invoked a run (scheduler name, operator, ...).
	HeaderTriggerSource = "X-Trigger-Source"
	// DefaultTriggerSource is recorded when the header is absent.
	DefaultTriggerSource = "http"

	maxTriggerSourceLen = 64
)

// PipelineRunner executes one pipeline pass.
type PipelineRunner interface {
	Run(ctx context.Context, req service.RunRequest) (*service.PipelineResult, error)
}

// RetentionRunner executes one retention pass.
type RetentionRunner interface {
	Run(ctx context.Context, req service.RunRequest) (*service.RetentionResult, error)
}

// RunHandlers serves the run trigger endpoints.
type RunHandlers struct {
	Pipeline  PipelineRunner
	Retention RetentionRunner
	Logger    *slog.Logger
}

type pipelineRunResponse struct {
	Success  bool   `json:"success"`
	JobRunID string `json:"job_run_id,omitempty"`
	Skipped  string `json:"skipped,omitempty"`
	model.StageSummary
	Stages map[model.Stage]model.StageSummary `json:"stages"`
}

type retentionRunResponse struct {
	Success  bool   `json:"success"`
	JobRunID string `json:"job_run_id,omitempty"`
	model.RetentionSummary
}

// RunPipeline handles POST /api/pipeline/run.
func (h *RunHandlers) RunPipeline(w http.ResponseWriter, r *http.Request) {
	res, err := h.Pipeline.Run(r.Context(), runRequest(r))
	if err != nil {
		h.logger().ErrorContext(r.Context(), "pipeline run request failed", "error", err)
		WriteFailure(w, http.StatusInternalServerError, resultRunID(res), err)
		return
	}

	resp := pipelineRunResponse{Success: true, JobRunID: res.RunID}
	if res.Summary != nil {
		resp.StageSummary = res.Summary.StageSummary
		resp.Stages = res.Summary.Stages
		resp.Skipped = res.Summary.DisabledReason
	}
	WriteJSON(w, http.StatusOK, resp)
}

// RunRetention handles POST /api/retention/run.
func (h *RunHandlers) RunRetention(w http.ResponseWriter, r *http.Request) {
	res, err := h.Retention.Run(r.Context(), runRequest(r))
	if err != nil {
		runID := ""
		if res != nil {
			runID = res.RunID
		}
		h.logger().ErrorContext(r.Context(), "retention run request failed", "error", err)
		WriteFailure(w, http.StatusInternalServerError, runID, err)
		return
	}

	resp := retentionRunResponse{Success: true, JobRunID: res.RunID}
	if res.Summary != nil {
		resp.RetentionSummary = *res.Summary
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *RunHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func runRequest(r *http.Request) service.RunRequest {
	return service.RunRequest{
		TriggerSource: triggerSource(r),
		Payload:       readPayload(r),
	}
}

func triggerSource(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get(HeaderTriggerSource))
	if v == "" {
		return DefaultTriggerSource
	}
	if len(v) > maxTriggerSourceLen {
		v = v[:maxTriggerSourceLen]
	}
	return v
}

func resultRunID(res *service.PipelineResult) string {
	if res == nil {
		return ""
	}
	return res.RunID
}
