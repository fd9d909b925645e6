package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrativewatch/triage/internal/domain/model"
	"github.com/narrativewatch/triage/internal/service"
)

type fakePipeline struct {
	got service.RunRequest
	res *service.PipelineResult
	err error
}

func (f *fakePipeline) Run(_ context.Context, req service.RunRequest) (*service.PipelineResult, error) {
	f.got = req
	return f.res, f.err
}

type fakeRetention struct {
	got service.RunRequest
	res *service.RetentionResult
	err error
}

func (f *fakeRetention) Run(_ context.Context, req service.RunRequest) (*service.RetentionResult, error) {
	f.got = req
	return f.res, f.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRunPipeline_Success(t *testing.T) {
	summary := model.NewPipelineSummary()
	summary.Record(model.StageQuick, model.StageSummary{Total: 3, Succeeded: 2, Failed: 1})
	summary.Record(model.StageDeep, model.StageSummary{Total: 1, Skipped: 1})
	pipeline := &fakePipeline{res: &service.PipelineResult{RunID: "run-1", Summary: summary}}
	h := &RunHandlers{Pipeline: pipeline}

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/run", nil)
	req.Header.Set(HeaderTriggerSource, " pg_cron ")
	rec := httptest.NewRecorder()
	h.RunPipeline(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "pg_cron", pipeline.got.TriggerSource)
	assert.Nil(t, pipeline.got.Payload)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "run-1", body["job_run_id"])
	assert.EqualValues(t, 4, body["total"])
	assert.EqualValues(t, 2, body["succeeded"])
	assert.EqualValues(t, 1, body["failed"])
	assert.EqualValues(t, 1, body["skipped"])
	stages, ok := body["stages"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, stages, "quick")
	assert.Contains(t, stages, "deep")
	assert.Contains(t, stages, "deepest")
}

func TestRunPipeline_Disabled(t *testing.T) {
	summary := model.NewPipelineSummary()
	summary.DisabledReason = service.DisabledReason
	h := &RunHandlers{Pipeline: &fakePipeline{res: &service.PipelineResult{RunID: "run-2", Summary: summary}}}

	rec := httptest.NewRecorder()
	h.RunPipeline(rec, httptest.NewRequest(http.MethodPost, "/api/pipeline/run", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "disabled", body["skipped"])
}

func TestRunPipeline_Failure(t *testing.T) {
	pipeline := &fakePipeline{
		res: &service.PipelineResult{RunID: "run-3", Summary: model.NewPipelineSummary()},
		err: errors.New("load settings: connection refused"),
	}
	h := &RunHandlers{Pipeline: pipeline}

	rec := httptest.NewRecorder()
	h.RunPipeline(rec, httptest.NewRequest(http.MethodPost, "/api/pipeline/run", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "load settings: connection refused", body["error"])
	assert.Equal(t, "run-3", body["job_run_id"])
	assert.Equal(t, DefaultTriggerSource, pipeline.got.TriggerSource)
}

func TestRunRetention_StoresJSONPayload(t *testing.T) {
	cutoff := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	retention := &fakeRetention{res: &service.RetentionResult{
		RunID: "run-4",
		Summary: &model.RetentionSummary{
			PostsArchived:  3,
			PostsDeleted:   2,
			QueueCleaned:   1,
			TotalPosts:     40,
			OldPosts:       6,
			Cutoff:         cutoff,
			TimestampField: "created_at",
		},
	}}
	h := &RunHandlers{Retention: retention}

	req := httptest.NewRequest(http.MethodPost, "/api/retention/run", strings.NewReader(`{"reason":"manual"}`))
	rec := httptest.NewRecorder()
	h.RunRetention(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reason":"manual"}`, string(retention.got.Payload))

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "run-4", body["job_run_id"])
	assert.EqualValues(t, 3, body["posts_archived"])
	assert.EqualValues(t, 2, body["posts_deleted"])
	assert.EqualValues(t, 1, body["queue_cleaned"])
	assert.EqualValues(t, 40, body["total_posts"])
	assert.EqualValues(t, 6, body["old_posts"])
	assert.Equal(t, "2025-03-09T12:00:00Z", body["cutoff"])
}

func TestRunRetention_IgnoresNonJSONBody(t *testing.T) {
	retention := &fakeRetention{res: &service.RetentionResult{Summary: &model.RetentionSummary{}}}
	h := &RunHandlers{Retention: retention}

	rec := httptest.NewRecorder()
	h.RunRetention(rec, httptest.NewRequest(http.MethodPost, "/api/retention/run", strings.NewReader("not json")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, retention.got.Payload)
	_, hasRunID := decodeBody(t, rec)["job_run_id"]
	assert.False(t, hasRunID, "untracked runs omit the id")
}

func TestRunRetention_Failure(t *testing.T) {
	h := &RunHandlers{Retention: &fakeRetention{err: errors.New("delete phase: timeout")}}

	rec := httptest.NewRecorder()
	h.RunRetention(rec, httptest.NewRequest(http.MethodPost, "/api/retention/run", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "delete phase: timeout", body["error"])
}

func TestTriggerSource(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "absent", want: "http"},
		{name: "blank", header: "   ", want: "http"},
		{name: "set", header: "supabase-cron", want: "supabase-cron"},
		{name: "truncated", header: strings.Repeat("x", 100), want: strings.Repeat("x", maxTriggerSourceLen)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderTriggerSource, tt.header)
			}
			assert.Equal(t, tt.want, triggerSource(req))
		})
	}
}
