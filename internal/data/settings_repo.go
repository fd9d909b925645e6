package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/narrativewatch/triage/internal/data/database"
	"github.com/narrativewatch/triage/internal/domain/model"
	apperrors "github.com/narrativewatch/triage/internal/errors"
)

const settingsTable = "app_settings"

// SettingsRepo reads and writes the app_settings key/value table.
type SettingsRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sql.DB, logger *slog.Logger) *SettingsRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsRepo{DB: db, logger: logger.With("component", "settings_repo")}
}

// Load reads every known setting into RunSettings. Missing keys keep their defaults;
// malformed values are logged and replaced by defaults.
func (r *SettingsRepo) Load(ctx context.Context) (model.RunSettings, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(settingsTable,
		database.WithColumns("key", "value"),
		database.WithCondition(database.WhereCond("key", database.In, []string{
			model.SettingEnabled,
			model.SettingBatchSize,
			model.SettingRetentionHours,
			model.SettingLastCounterReset,
		})),
	))

	settings := model.DefaultRunSettings()
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return settings, fmt.Errorf("load settings: %w", apperrors.MapDBError(err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return settings, fmt.Errorf("scan setting: %w", err)
		}
		r.apply(ctx, &settings, key, strings.TrimSpace(value))
	}
	if err = rows.Err(); err != nil {
		return settings, fmt.Errorf("iterate settings: %w", err)
	}

	settings.Normalize()
	return settings, nil
}

func (r *SettingsRepo) apply(ctx context.Context, s *model.RunSettings, key, value string) {
	switch key {
	case model.SettingEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			r.logger.WarnContext(ctx, "invalid setting value", "key", key, "value", value)
			return
		}
		s.Enabled = b
	case model.SettingBatchSize:
		n, err := strconv.Atoi(value)
		if err != nil {
			r.logger.WarnContext(ctx, "invalid setting value", "key", key, "value", value)
			return
		}
		s.BatchSize = n
	case model.SettingRetentionHours:
		n, err := strconv.Atoi(value)
		if err != nil {
			r.logger.WarnContext(ctx, "invalid setting value", "key", key, "value", value)
			return
		}
		s.RetentionHours = n
	case model.SettingLastCounterReset:
		s.LastCounterReset = value
	}
}

// Set upserts one setting.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	query, args, err := upsertSettingStmt(key, value)
	if err != nil {
		return err
	}
	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set setting %s: %w", key, apperrors.MapDBError(err))
	}
	return nil
}

func upsertSettingStmt(key, value string) (string, []any, error) {
	query, args, err := psql.Insert(settingsTable).
		Columns("key", "value", "updated_at").
		Values(key, value, sq.Expr("now()")).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build setting upsert: %w", err)
	}
	return query, args, nil
}
