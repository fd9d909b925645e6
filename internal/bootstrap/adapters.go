package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/narrativewatch/triage/config"
	"github.com/narrativewatch/triage/internal/adapters/ticker"
	"github.com/narrativewatch/triage/internal/service"
)

// TickerConfig contains configuration for the in-process ticker.
type TickerConfig struct {
	Pipeline  *service.PipelineService
	Retention *service.RetentionService
	Config    config.TickerConfig
	Logger    *slog.Logger
}

// RunTicker starts the ticker that triggers pipeline and retention runs on an interval.
func RunTicker(ctx context.Context, cfg TickerConfig) error {
	opts := ticker.RunnerOptions{
		Config: cfg.Config,
		Logger: cfg.Logger,
	}
	// Assign only non-nil services so the runner sees a nil interface and skips the loop.
	if cfg.Pipeline != nil {
		opts.Pipeline = cfg.Pipeline
	}
	if cfg.Retention != nil {
		opts.Retention = cfg.Retention
	}

	runner, err := ticker.NewRunner(opts)
	if err != nil {
		return fmt.Errorf("create ticker runner: %w", err)
	}

	return runner.Run(ctx)
}
