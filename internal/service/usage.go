package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
)

const tokensPerMillion = 1_000_000

// DefaultPricing is used when no prices are configured (USD per million tokens).
var DefaultPricing = model.Pricing{InputPerMTok: 3.00, OutputPerMTok: 15.00}

// ComputeCost prices token usage at the given per-million-token rates.
func ComputeCost(usage model.TokenUsage, rates model.Pricing) model.CostBreakdown {
	in := float64(usage.InputTokens) * rates.InputPerMTok / tokensPerMillion
	out := float64(usage.OutputTokens) * rates.OutputPerMTok / tokensPerMillion
	return model.CostBreakdown{
		InputCost:  in,
		OutputCost: out,
		TotalCost:  in + out,
	}
}

// UsageEntry describes one classification call to be accounted.
type UsageEntry struct {
	Endpoint string
	Model    string
	Usage    model.TokenUsage
	Latency  time.Duration
	Status   model.UsageStatus
	PostID   string
}

// UsageMeterOptions groups dependencies for UsageMeter.
type UsageMeterOptions struct {
	Repo    core.UsageRepository // Required
	Pricing model.Pricing        // Optional: zero value uses DefaultPricing
	Logger  *slog.Logger         // Optional
}

// UsageMeter records token usage and cost for every classification call.
type UsageMeter struct {
	repo    core.UsageRepository
	pricing model.Pricing
	logger  *slog.Logger
}

// NewUsageMeter constructs a UsageMeter. A nil repo yields a meter that only computes cost.
func NewUsageMeter(opts UsageMeterOptions) *UsageMeter {
	pricing := opts.Pricing
	if pricing == (model.Pricing{}) {
		pricing = DefaultPricing
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageMeter{
		repo:    opts.Repo,
		pricing: pricing,
		logger:  logger.With("component", "usage_meter"),
	}
}

// Record appends a usage row. Write failures are logged and swallowed so accounting
// never changes the outcome of the call being accounted.
func (m *UsageMeter) Record(ctx context.Context, e UsageEntry) {
	if m == nil || m.repo == nil {
		return
	}

	status := e.Status
	if status == "" {
		status = model.UsageStatusSuccess
	}
	cost := ComputeCost(e.Usage, m.pricing)

	rec := &model.UsageRecord{
		Endpoint:     e.Endpoint,
		Model:        e.Model,
		InputTokens:  e.Usage.InputTokens,
		OutputTokens: e.Usage.OutputTokens,
		InputCost:    cost.InputCost,
		OutputCost:   cost.OutputCost,
		TotalCost:    cost.TotalCost,
		LatencyMS:    e.Latency.Milliseconds(),
		Status:       status,
	}
	if e.PostID != "" {
		id := e.PostID
		rec.PostID = &id
	}

	if err := m.repo.Insert(ctx, rec); err != nil {
		m.logger.WarnContext(ctx, "failed to record usage",
			"endpoint", e.Endpoint,
			"post_id", e.PostID,
			"error", err,
		)
	}
}
