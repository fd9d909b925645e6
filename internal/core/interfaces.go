package core

import (
	"context"
	"time"

	"github.com/narrativewatch/triage/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not on concrete implementations.

// PostRepository reads posts for the classification pipeline.
// It never writes classification fields; the classification service owns them.
type PostRepository interface {
	// QuickCandidates returns unclassified, non-archived posts with content, oldest first.
	QuickCandidates(ctx context.Context, limit int) ([]*model.Post, error)
	// DeepCandidates returns flagged, non-archived posts without a deep analysis, oldest first.
	DeepCandidates(ctx context.Context, limit int) ([]*model.Post, error)
	// DeepestCandidates returns flagged, deep-analyzed posts with content awaiting the deepest stage.
	DeepestCandidates(ctx context.Context, limit int) ([]*model.Post, error)
	// GetByID returns a NotFound AppError when the post does not exist.
	GetByID(ctx context.Context, id string) (*model.Post, error)
}

// OlderThanParams scopes retention queries to posts older than a cutoff.
type OlderThanParams struct {
	// Field is the timestamp column compared against Cutoff.
	Field  string
	Cutoff time.Time
}

// ListOlderThanParams pages through old, non-archived posts by id.
type ListOlderThanParams struct {
	OlderThanParams
	AfterID string
	Limit   int
}

// RetentionRepository holds the queries and id-scoped mutations of the retention engine.
type RetentionRepository interface {
	CountPosts(ctx context.Context) (int, error)
	CountOlderThan(ctx context.Context, params OlderThanParams) (int, error)
	ListOlderThan(ctx context.Context, params ListOlderThanParams) ([]*model.Post, error)
	// ArchiveByIDs sets status=archived on the given non-archived posts.
	ArchiveByIDs(ctx context.Context, ids []string) (int, error)
	// DeleteByIDs hard-deletes the given posts, skipping any that are archived.
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	// ResetRollingCounters zeroes the 30-day counters and records day as the last reset.
	ResetRollingCounters(ctx context.Context, day string) error
	// CleanupStaleReviewQueue runs the store-side purge and returns the number of entries removed.
	CleanupStaleReviewQueue(ctx context.Context) (int, error)
}

// JobRunRepository persists job run lifecycle rows.
type JobRunRepository interface {
	Create(ctx context.Context, req *model.CreateJobRunRequest) (*model.JobRun, error)
	// Complete transitions a running row; it returns false when the row was not running.
	Complete(ctx context.Context, req *model.CompleteJobRunRequest) (bool, error)
	GetByID(ctx context.Context, id string) (*model.JobRun, error)
}

// CleanupHistoryRepository appends retention audit rows.
type CleanupHistoryRepository interface {
	Insert(ctx context.Context, rec *model.CleanupHistory) error
}

// UsageRepository appends usage accounting rows.
type UsageRepository interface {
	Insert(ctx context.Context, rec *model.UsageRecord) error
}

// SettingsRepository loads the per-invocation runtime settings.
type SettingsRepository interface {
	Load(ctx context.Context) (model.RunSettings, error)
}

// DailyStatsParams increments the pipeline counters for one date.
type DailyStatsParams struct {
	Day       string
	Succeeded int
	Failed    int
	Skipped   int
}

// StatsRepository persists rolling pipeline statistics.
type StatsRepository interface {
	IncrementDaily(ctx context.Context, params DailyStatsParams) error
}

// ClassifyRequest is one call to the external classification service.
type ClassifyRequest struct {
	Stage  model.Stage
	PostID string
	// DeepAnalyzedAt is forwarded to the deepest stage so it can confirm eligibility.
	DeepAnalyzedAt *time.Time
}

// ClassifyResult describes a successful classification call.
type ClassifyResult struct {
	Model   string
	Usage   model.TokenUsage
	Latency time.Duration
}

// ClassificationClient invokes the external classification service.
// A non-nil error means the call did not succeed; the result may still carry latency and usage.
type ClassificationClient interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error)
}
