package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/narrativewatch/triage/internal/adapters/classifier"
	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
	"github.com/narrativewatch/triage/internal/mocks"
	"github.com/narrativewatch/triage/internal/observability/statsd"
)

func TestBenignReason(t *testing.T) {
	notFound := &classifier.StatusError{StatusCode: http.StatusNotFound, Body: `{"error":"Post Not Found"}`}
	notEligible := &classifier.StatusError{StatusCode: http.StatusBadRequest, Body: "post not yet eligible for deepest analysis"}
	serverErr := &classifier.StatusError{StatusCode: http.StatusInternalServerError, Body: "internal error"}
	modelMissing := &classifier.StatusError{StatusCode: http.StatusInternalServerError, Body: "model not found"}
	postGone := &classifier.StatusError{StatusCode: http.StatusGone, Body: `{"error":"post not found"}`}
	badRequest := &classifier.StatusError{StatusCode: http.StatusBadRequest, Body: "route not found"}

	tests := []struct {
		name   string
		stage  model.Stage
		err    error
		reason string
		benign bool
	}{
		{name: "not found on quick", stage: model.StageQuick, err: notFound, reason: SkipNotFound, benign: true},
		{name: "not found on deepest", stage: model.StageDeepest, err: notFound, reason: SkipNotFound, benign: true},
		{name: "not eligible on deepest", stage: model.StageDeepest, err: notEligible, reason: SkipNotEligible, benign: true},
		{name: "not eligible on deep is a failure", stage: model.StageDeep, err: notEligible},
		{name: "server error", stage: model.StageQuick, err: serverErr},
		{name: "5xx mentioning not found is a failure", stage: model.StageQuick, err: modelMissing},
		{name: "missing post phrase on other 4xx", stage: model.StageDeep, err: postGone, reason: SkipNotFound, benign: true},
		{name: "generic not found text on 400 is a failure", stage: model.StageQuick, err: badRequest},
		{name: "transport error", stage: model.StageQuick, err: errors.New("connection reset: not found")},
		{name: "wrapped status error", stage: model.StageQuick, err: errors.Join(errors.New("call"), notFound), reason: SkipNotFound, benign: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := benignReason(tt.stage, tt.err)
			assert.Equal(t, tt.benign, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestStageExecutor_Execute(t *testing.T) {
	deepAt := testNow.Add(-2 * time.Hour)

	tests := []struct {
		name       string
		stage      model.Stage
		result     *core.ClassifyResult
		err        error
		wantKind   OutcomeKind
		wantStatus model.UsageStatus
		wantMetric string
	}{
		{
			name:       "success",
			stage:      model.StageQuick,
			result:     &core.ClassifyResult{Model: "m", Usage: model.TokenUsage{InputTokens: 10, OutputTokens: 2}, Latency: time.Second},
			wantKind:   OutcomeSucceeded,
			wantStatus: model.UsageStatusSuccess,
			wantMetric: "success",
		},
		{
			name:       "benign not found",
			stage:      model.StageDeep,
			result:     &core.ClassifyResult{Latency: time.Millisecond},
			err:        &classifier.StatusError{StatusCode: 404, Body: "not found"},
			wantKind:   OutcomeSkipped,
			wantStatus: model.UsageStatusError,
			wantMetric: "skipped",
		},
		{
			name:       "failure without result",
			stage:      model.StageDeepest,
			err:        errors.New("dial tcp: refused"),
			wantKind:   OutcomeFailed,
			wantStatus: model.UsageStatusError,
			wantMetric: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockClassificationClient(ctrl)
			usage := &recordingUsage{}
			rec := &statsd.Recorder{}

			exec, err := NewStageExecutor(StageExecutorOptions{
				Client:  client,
				Meter:   NewUsageMeter(UsageMeterOptions{Repo: usage}),
				Metrics: rec,
			})
			require.NoError(t, err)

			post := &model.Post{ID: "post-1", DeepAnalyzedAt: &deepAt}
			client.EXPECT().
				Classify(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req core.ClassifyRequest) (*core.ClassifyResult, error) {
					assert.Equal(t, tt.stage, req.Stage)
					assert.Equal(t, "post-1", req.PostID)
					if tt.stage == model.StageDeepest {
						assert.Equal(t, &deepAt, req.DeepAnalyzedAt)
					} else {
						assert.Nil(t, req.DeepAnalyzedAt)
					}
					return tt.result, tt.err
				})

			out := exec.Execute(context.Background(), tt.stage, post)
			assert.Equal(t, tt.wantKind, out.Kind)

			require.Len(t, usage.records, 1, "one usage row per call")
			assert.Equal(t, tt.stage.Endpoint(), usage.records[0].Endpoint)
			assert.Equal(t, tt.wantStatus, usage.records[0].Status)

			items := rec.Counts("pipeline.item")
			require.Len(t, items, 1)
			assert.Equal(t, tt.wantMetric, items[0].Tags["result"])
			assert.Equal(t, string(tt.stage), items[0].Tags["stage"])
		})
	}
}

func TestItemOutcome_Apply(t *testing.T) {
	var s model.StageSummary
	Succeeded().apply(&s)
	Skipped(SkipArchived).apply(&s)
	Failed(errors.New("x")).apply(&s)
	Failed(errors.New("y")).apply(&s)

	assert.Equal(t, model.StageSummary{Total: 4, Succeeded: 1, Skipped: 1, Failed: 2}, s)
}

func TestNewStageExecutor_RequiresClient(t *testing.T) {
	_, err := NewStageExecutor(StageExecutorOptions{})
	require.Error(t, err)
}
