package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/narrativewatch/triage/internal/domain/model"
	apperrors "github.com/narrativewatch/triage/internal/errors"
)

// CleanupHistoryRepo appends retention audit rows.
type CleanupHistoryRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCleanupHistoryRepo creates a new CleanupHistoryRepo.
func NewCleanupHistoryRepo(db *sql.DB, tp TimeProvider) *CleanupHistoryRepo {
	return &CleanupHistoryRepo{DB: db, timeProvider: timeProviderOrReal(tp)}
}

// Insert appends rec and fills its id and created_at.
func (r *CleanupHistoryRepo) Insert(ctx context.Context, rec *model.CleanupHistory) error {
	if rec == nil {
		return ErrNilRecord
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.timeProvider.Now().UTC()
	}

	query, args, err := psql.Insert("cleanup_history").
		Columns("posts_archived", "posts_deleted", "queue_cleaned", "total_posts", "old_posts",
			"cutoff", "timestamp_field", "success", "error_message", "created_at").
		Values(rec.PostsArchived, rec.PostsDeleted, rec.QueueCleaned, rec.TotalPosts, rec.OldPosts,
			rec.Cutoff.UTC(), rec.TimestampField, rec.Success, nullString(rec.ErrorMessage), rec.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build cleanup history insert: %w", err)
	}

	if err = r.DB.QueryRowContext(ctx, query, args...).Scan(&rec.ID); err != nil {
		return fmt.Errorf("insert cleanup history: %w", apperrors.MapDBError(err))
	}
	return nil
}

// UsageRepo appends usage accounting rows.
type UsageRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUsageRepo creates a new UsageRepo.
func NewUsageRepo(db *sql.DB, tp TimeProvider) *UsageRepo {
	return &UsageRepo{DB: db, timeProvider: timeProviderOrReal(tp)}
}

// Insert appends rec and fills its id and created_at when unset.
func (r *UsageRepo) Insert(ctx context.Context, rec *model.UsageRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.timeProvider.Now().UTC()
	}

	query, args, err := psql.Insert("usage_records").
		Columns("id", "endpoint", "model", "input_tokens", "output_tokens", "input_cost",
			"output_cost", "total_cost", "latency_ms", "status", "post_id", "created_at").
		Values(rec.ID, rec.Endpoint, nullString(optionalString(rec.Model)), rec.InputTokens, rec.OutputTokens,
			rec.InputCost, rec.OutputCost, rec.TotalCost, rec.LatencyMS, string(rec.Status),
			nullString(rec.PostID), rec.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build usage insert: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert usage record: %w", apperrors.MapDBError(err))
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
