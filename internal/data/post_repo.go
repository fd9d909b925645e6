package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/narrativewatch/triage/internal/data/database"
	"github.com/narrativewatch/triage/internal/domain/model"
	apperrors "github.com/narrativewatch/triage/internal/errors"
)

const postsTable = "posts"

var postColumns = []string{
	"id",
	"content",
	"status",
	"is_psyop",
	"threat_level",
	"psyop_risk_score",
	"quick_analyzed_at",
	"deep_analyzed_at",
	"deepest_analysis_completed_at",
	"published_at",
	"created_at",
}

// PostRepo reads posts for the classification pipeline.
type PostRepo struct {
	DB *sql.DB
}

// NewPostRepo creates a new PostRepo.
func NewPostRepo(db *sql.DB) *PostRepo {
	return &PostRepo{DB: db}
}

func notArchived() database.Condition {
	return database.WhereCond("status", database.NotEqual, string(model.PostStatusArchived))
}

// QuickCandidates returns unclassified, never quick-analyzed posts with content in ingestion order.
// A post stamped by the quick stage without a decision is excluded so it cannot occupy the batch.
func (r *PostRepo) QuickCandidates(ctx context.Context, limit int) ([]*model.Post, error) {
	return r.list(ctx, database.NewListQueryOptions(postsTable,
		database.WithColumns(postColumns...),
		database.WithConditions(
			database.WhereNull("is_psyop"),
			database.WhereNull("quick_analyzed_at"),
			notArchived(),
			database.WhereNotBlank("content"),
		),
		database.WithOrderBy("created_at", "ASC"),
		database.WithOrderBy("id", "ASC"),
		database.WithLimit(limit),
	))
}

// DeepCandidates returns flagged posts that have not been deep-analyzed.
// The quick-stage timestamp is deliberately not required.
func (r *PostRepo) DeepCandidates(ctx context.Context, limit int) ([]*model.Post, error) {
	return r.list(ctx, database.NewListQueryOptions(postsTable,
		database.WithColumns(postColumns...),
		database.WithConditions(
			database.WhereTrue("is_psyop"),
			notArchived(),
			database.WhereNull("deep_analyzed_at"),
		),
		database.WithOrderBy("created_at", "ASC"),
		database.WithLimit(limit),
	))
}

// DeepestCandidates returns flagged, deep-analyzed posts with content awaiting the deepest stage.
func (r *PostRepo) DeepestCandidates(ctx context.Context, limit int) ([]*model.Post, error) {
	return r.list(ctx, database.NewListQueryOptions(postsTable,
		database.WithColumns(postColumns...),
		database.WithConditions(
			database.WhereTrue("is_psyop"),
			database.WhereNotNull("deep_analyzed_at"),
			database.WhereNull("deepest_analysis_completed_at"),
			notArchived(),
			database.WhereNotBlank("content"),
		),
		database.WithOrderBy("deep_analyzed_at", "ASC"),
		database.WithLimit(limit),
	))
}

// GetByID returns a single post.
func (r *PostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(postsTable,
		database.WithColumns(postColumns...),
		database.WithCondition(database.WhereCond("id", database.Equal, id)),
	))

	p, err := scanPost(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if mapped := apperrors.MapDBError(err); apperrors.IsNotFound(mapped) {
			return nil, apperrors.NotFoundf("post %s not found", id)
		}
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return p, nil
}

func (r *PostRepo) list(ctx context.Context, opts *database.ListQueryOptions) ([]*model.Post, error) {
	query, args := database.BuildListQuery(opts)
	return queryPosts(ctx, r.DB, query, args...)
}

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryPosts(ctx context.Context, q rowQuerier, query string, args ...any) ([]*model.Post, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", apperrors.MapDBError(err))
	}
	defer func() { _ = rows.Close() }()

	var posts []*model.Post
	for rows.Next() {
		p, scanErr := scanPost(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan post: %w", scanErr)
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner) (*model.Post, error) {
	var (
		p       model.Post
		content sql.NullString
		status  string
		isPsyop sql.NullBool
		threat  sql.NullString
		score   sql.NullFloat64
		quick   sql.NullTime
		deep    sql.NullTime
		deepest sql.NullTime
		pub     sql.NullTime
	)
	if err := s.Scan(
		&p.ID, &content, &status, &isPsyop, &threat, &score,
		&quick, &deep, &deepest, &pub, &p.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.Status = model.PostStatus(strings.TrimSpace(status))
	if content.Valid {
		p.Content = &content.String
	}
	if isPsyop.Valid {
		p.Classification = model.ClassificationFromNullable(&isPsyop.Bool)
	}
	if threat.Valid {
		p.ThreatLevel = model.ParseThreatLevel(threat.String)
	}
	if score.Valid {
		p.PsyopRiskScore = &score.Float64
	}
	p.QuickAnalyzedAt = nullTimePtr(quick)
	p.DeepAnalyzedAt = nullTimePtr(deep)
	p.DeepestAnalysisCompletedAt = nullTimePtr(deepest)
	p.PublishedAt = nullTimePtr(pub)
	return &p, nil
}
