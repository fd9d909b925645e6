package data

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/narrativewatch/triage/internal/core"
	apperrors "github.com/narrativewatch/triage/internal/errors"
)

// StatsRepo persists rolling pipeline statistics.
type StatsRepo struct {
	DB *sql.DB
}

// NewStatsRepo creates a new StatsRepo.
func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{DB: db}
}

// IncrementDaily adds one run and the given counters to the row for params.Day, creating it if needed.
func (r *StatsRepo) IncrementDaily(ctx context.Context, params core.DailyStatsParams) error {
	if params.Day == "" {
		return apperrors.Validation("stat day is required")
	}

	query, args, err := psql.Insert("pipeline_daily_stats").
		Columns("stat_date", "runs", "succeeded", "failed", "skipped", "updated_at").
		Values(params.Day, 1, params.Succeeded, params.Failed, params.Skipped, sq.Expr("now()")).
		Suffix(`ON CONFLICT (stat_date) DO UPDATE SET
			runs = pipeline_daily_stats.runs + 1,
			succeeded = pipeline_daily_stats.succeeded + EXCLUDED.succeeded,
			failed = pipeline_daily_stats.failed + EXCLUDED.failed,
			skipped = pipeline_daily_stats.skipped + EXCLUDED.skipped,
			updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build daily stats upsert: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("increment daily stats: %w", apperrors.MapDBError(err))
	}
	return nil
}
