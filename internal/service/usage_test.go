package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrativewatch/triage/internal/domain/model"
)

func TestComputeCost(t *testing.T) {
	tests := []struct {
		name  string
		usage model.TokenUsage
		rates model.Pricing
		want  model.CostBreakdown
	}{
		{
			name:  "default rates",
			usage: model.TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			rates: DefaultPricing,
			want:  model.CostBreakdown{InputCost: 3, OutputCost: 15, TotalCost: 18},
		},
		{
			name:  "fractional usage",
			usage: model.TokenUsage{InputTokens: 2000, OutputTokens: 500},
			rates: model.Pricing{InputPerMTok: 3, OutputPerMTok: 15},
			want:  model.CostBreakdown{InputCost: 0.006, OutputCost: 0.0075, TotalCost: 0.0135},
		},
		{
			name:  "no usage",
			rates: DefaultPricing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCost(tt.usage, tt.rates)
			assert.InDelta(t, tt.want.InputCost, got.InputCost, 1e-9)
			assert.InDelta(t, tt.want.OutputCost, got.OutputCost, 1e-9)
			assert.InDelta(t, tt.want.TotalCost, got.TotalCost, 1e-9)
		})
	}
}

func TestUsageMeter_Record(t *testing.T) {
	repo := &recordingUsage{}
	meter := NewUsageMeter(UsageMeterOptions{Repo: repo})

	meter.Record(context.Background(), UsageEntry{
		Endpoint: model.StageQuick.Endpoint(),
		Model:    "claude-test",
		Usage:    model.TokenUsage{InputTokens: 1000, OutputTokens: 200},
		Latency:  1500 * time.Millisecond,
		PostID:   "post-1",
	})

	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	assert.Equal(t, "analyze-quick", rec.Endpoint)
	assert.Equal(t, "claude-test", rec.Model)
	assert.Equal(t, model.UsageStatusSuccess, rec.Status)
	assert.Equal(t, int64(1500), rec.LatencyMS)
	assert.InDelta(t, 0.003, rec.InputCost, 1e-9)
	assert.InDelta(t, 0.003, rec.OutputCost, 1e-9)
	assert.InDelta(t, 0.006, rec.TotalCost, 1e-9)
	require.NotNil(t, rec.PostID)
	assert.Equal(t, "post-1", *rec.PostID)
}

func TestUsageMeter_CustomPricingAndErrorStatus(t *testing.T) {
	repo := &recordingUsage{}
	meter := NewUsageMeter(UsageMeterOptions{
		Repo:    repo,
		Pricing: model.Pricing{InputPerMTok: 1, OutputPerMTok: 2},
	})

	meter.Record(context.Background(), UsageEntry{
		Endpoint: model.StageDeep.Endpoint(),
		Usage:    model.TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
		Status:   model.UsageStatusError,
	})

	require.Len(t, repo.records, 1)
	assert.Equal(t, model.UsageStatusError, repo.records[0].Status)
	assert.InDelta(t, 3.0, repo.records[0].TotalCost, 1e-9)
	assert.Nil(t, repo.records[0].PostID)
}

func TestUsageMeter_SwallowsInsertErrors(t *testing.T) {
	repo := &recordingUsage{err: errors.New("db down")}
	meter := NewUsageMeter(UsageMeterOptions{Repo: repo})

	assert.NotPanics(t, func() {
		meter.Record(context.Background(), UsageEntry{Endpoint: "analyze-quick"})
	})
	assert.Len(t, repo.records, 1)
}

func TestUsageMeter_NilSafe(t *testing.T) {
	var meter *UsageMeter
	assert.NotPanics(t, func() {
		meter.Record(context.Background(), UsageEntry{Endpoint: "analyze-quick"})
	})

	noRepo := NewUsageMeter(UsageMeterOptions{})
	assert.NotPanics(t, func() {
		noRepo.Record(context.Background(), UsageEntry{Endpoint: "analyze-quick"})
	})
}
