package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
	"github.com/narrativewatch/triage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepo_Load(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewSettingsRepo(db, nil)
		ctx := context.Background()

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultRunSettings(), got)

		testutil.SetSetting(t, db, model.SettingEnabled, "false")
		testutil.SetSetting(t, db, model.SettingBatchSize, "500")
		testutil.SetSetting(t, db, model.SettingRetentionHours, "72")
		require.NoError(t, repo.Set(ctx, model.SettingLastCounterReset, "2025-03-09"))

		got, err = repo.Load(ctx)
		require.NoError(t, err)
		assert.False(t, got.Enabled)
		assert.Equal(t, 500, got.BatchSize)
		assert.Equal(t, 72, got.RetentionHours)
		assert.Equal(t, "2025-03-09", got.LastCounterReset)
	})
}

func TestSettingsRepo_Load_MalformedValuesFallBack(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewSettingsRepo(db, nil)

		testutil.SetSetting(t, db, model.SettingEnabled, "maybe")
		testutil.SetSetting(t, db, model.SettingBatchSize, "twenty")
		testutil.SetSetting(t, db, model.SettingRetentionHours, "-5")

		got, err := repo.Load(context.Background())
		require.NoError(t, err)
		assert.True(t, got.Enabled)
		assert.Equal(t, model.DefaultBatchSize, got.BatchSize)
		assert.Equal(t, model.DefaultRetentionHours, got.RetentionHours)
	})
}

func TestStatsRepo_IncrementDaily(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewStatsRepo(db)
		ctx := context.Background()

		require.NoError(t, repo.IncrementDaily(ctx, core.DailyStatsParams{Day: "2025-03-10", Succeeded: 3, Failed: 1}))
		require.NoError(t, repo.IncrementDaily(ctx, core.DailyStatsParams{Day: "2025-03-10", Succeeded: 2, Skipped: 4}))

		var runs, succeeded, failed, skipped int
		err := db.QueryRowContext(ctx,
			`SELECT runs, succeeded, failed, skipped FROM pipeline_daily_stats WHERE stat_date = '2025-03-10'`,
		).Scan(&runs, &succeeded, &failed, &skipped)
		require.NoError(t, err)
		assert.Equal(t, 2, runs)
		assert.Equal(t, 5, succeeded)
		assert.Equal(t, 1, failed)
		assert.Equal(t, 4, skipped)

		require.Error(t, repo.IncrementDaily(ctx, core.DailyStatsParams{}))
	})
}
