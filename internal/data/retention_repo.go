package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/data/database"
	"github.com/narrativewatch/triage/internal/data/pgxutil"
	"github.com/narrativewatch/triage/internal/domain/model"
	apperrors "github.com/narrativewatch/triage/internal/errors"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// retentionTimestampFields are the post columns a retention cutoff may be compared against.
var retentionTimestampFields = map[string]struct{}{
	"created_at":   {},
	"published_at": {},
}

// RetentionRepo implements core.RetentionRepository on PostgreSQL.
type RetentionRepo struct {
	DB *sql.DB
}

// NewRetentionRepo creates a new RetentionRepo.
func NewRetentionRepo(db *sql.DB) *RetentionRepo {
	return &RetentionRepo{DB: db}
}

func validateField(field string) error {
	if _, ok := retentionTimestampFields[field]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTimestampField, field)
	}
	return nil
}

func (r *RetentionRepo) count(ctx context.Context, opts *database.ListQueryOptions) (int, error) {
	query, args := database.BuildListQuery(opts)
	var n int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return n, nil
}

// CountPosts returns the total number of posts.
func (r *RetentionRepo) CountPosts(ctx context.Context) (int, error) {
	n, err := r.count(ctx, database.NewListQueryOptions(postsTable, database.WithCountOnly()))
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// CountOlderThan returns the number of posts whose timestamp field is before the cutoff, archived or not.
func (r *RetentionRepo) CountOlderThan(ctx context.Context, params core.OlderThanParams) (int, error) {
	if err := validateField(params.Field); err != nil {
		return 0, err
	}
	n, err := r.count(ctx, database.NewListQueryOptions(postsTable,
		database.WithCountOnly(),
		database.WithCondition(database.WhereCond(params.Field, database.LessThan, params.Cutoff.UTC())),
	))
	if err != nil {
		return 0, fmt.Errorf("count posts older than cutoff: %w", err)
	}
	return n, nil
}

// ListOlderThan returns one page of old, non-archived posts ordered by id.
func (r *RetentionRepo) ListOlderThan(ctx context.Context, params core.ListOlderThanParams) ([]*model.Post, error) {
	if err := validateField(params.Field); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		return nil, apperrors.Validation("limit must be greater than zero")
	}

	conds := []database.Condition{
		database.WhereCond(params.Field, database.LessThan, params.Cutoff.UTC()),
		notArchived(),
	}
	if params.AfterID != "" {
		conds = append(conds, database.WhereCond("id", database.GreaterThan, params.AfterID))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions(postsTable,
		database.WithColumns(postColumns...),
		database.WithConditions(conds...),
		database.WithOrderBy("id", "ASC"),
		database.WithLimit(params.Limit),
	))
	return queryPosts(ctx, r.DB, query, args...)
}

// ArchiveByIDs sets status=archived for the given posts. Already archived posts are not touched.
func (r *RetentionRepo) ArchiveByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := psql.Update(postsTable).
		Set("status", string(model.PostStatusArchived)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": ids}).
		Where(sq.NotEq{"status": string(model.PostStatusArchived)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build archive statement: %w", err)
	}
	return r.execInTx(ctx, "archive posts", query, args)
}

// DeleteByIDs hard-deletes the given posts. Archived posts are never deleted.
func (r *RetentionRepo) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := psql.Delete(postsTable).
		Where(sq.Eq{"id": ids}).
		Where(sq.NotEq{"status": string(model.PostStatusArchived)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete statement: %w", err)
	}
	return r.execInTx(ctx, "delete posts", query, args)
}

func (r *RetentionRepo) execInTx(ctx context.Context, op, query string, args []any) (int, error) {
	n, err := pgxutil.ExecInTx(ctx, r.DB, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, apperrors.MapDBError(err))
	}
	return n, nil
}

// rollingCounterTables hold the 30-day counters zeroed once per day.
var rollingCounterTables = []string{"source_statistics", "channel_statistics"}

// ResetRollingCounters zeroes the 30-day counters and stores day as the last reset marker,
// all in one transaction sent as a single batch.
func (r *RetentionRepo) ResetRollingCounters(ctx context.Context, day string) error {
	if strings.TrimSpace(day) == "" {
		return apperrors.Validation("reset day is required")
	}

	batch := &pgx.Batch{}
	for _, table := range rollingCounterTables {
		query, args, err := psql.Update(table).
			Set("posts_30d", 0).
			Set("flagged_30d", 0).
			Set("updated_at", sq.Expr("now()")).
			ToSql()
		if err != nil {
			return fmt.Errorf("build reset statement for %s: %w", table, err)
		}
		batch.Queue(query, args...)
	}
	markQuery, markArgs, err := upsertSettingStmt(model.SettingLastCounterReset, day)
	if err != nil {
		return err
	}
	batch.Queue(markQuery, markArgs...)

	if err = pgxutil.SendBatchTx(ctx, r.DB, batch); err != nil {
		return fmt.Errorf("reset rolling counters: %w", apperrors.MapDBError(err))
	}
	return nil
}

// CleanupStaleReviewQueue calls the store-side queue purge routine.
func (r *RetentionRepo) CleanupStaleReviewQueue(ctx context.Context) (int, error) {
	var removed sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, "SELECT cleanup_stale_review_queue()").Scan(&removed); err != nil {
		return 0, fmt.Errorf("cleanup stale review queue: %w", apperrors.MapDBError(err))
	}
	return int(removed.Int64), nil
}
