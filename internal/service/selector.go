package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/narrativewatch/triage/internal/core"
	"github.com/narrativewatch/triage/internal/domain/model"
	apperrors "github.com/narrativewatch/triage/internal/errors"
)

// Skip reasons reported for benign skips.
const (
	SkipNotFound    = "not found"
	SkipArchived    = "archived"
	SkipNoContent   = "no content"
	SkipDone        = "stage already completed"
	SkipNotEligible = "not eligible"
	SkipClaimed     = "claimed by another run"
)

// CandidateSelectorOptions groups dependencies for CandidateSelector.
type CandidateSelectorOptions struct {
	Posts  core.PostRepository  // Required
	Claims core.CacheRepository // Optional: nil disables claims
	// ClaimTTL bounds how long a claim blocks other runs. Defaults to 10 minutes.
	ClaimTTL time.Duration
	Logger   *slog.Logger
}

// CandidateSelector picks the posts eligible for each stage and re-checks them
// right before they are sent to the classifier.
type CandidateSelector struct {
	posts    core.PostRepository
	claims   core.CacheRepository
	claimTTL time.Duration
	logger   *slog.Logger
}

// NewCandidateSelector constructs a CandidateSelector.
func NewCandidateSelector(opts CandidateSelectorOptions) (*CandidateSelector, error) {
	if opts.Posts == nil {
		return nil, errors.New("PostRepository is required")
	}
	ttl := opts.ClaimTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidateSelector{
		posts:    opts.Posts,
		claims:   opts.Claims,
		claimTTL: ttl,
		logger:   logger.With("component", "candidate_selector"),
	}, nil
}

// Select returns the current candidates for stage. The quick stage honours the
// configured batch size; deep and deepest use the fixed stage cap.
func (s *CandidateSelector) Select(ctx context.Context, stage model.Stage, settings model.RunSettings) ([]*model.Post, error) {
	var (
		posts []*model.Post
		err   error
	)
	switch stage {
	case model.StageQuick:
		limit := settings.BatchSize
		if limit <= 0 {
			limit = model.DefaultBatchSize
		}
		posts, err = s.posts.QuickCandidates(ctx, limit)
	case model.StageDeep:
		posts, err = s.posts.DeepCandidates(ctx, model.StageCap)
	case model.StageDeepest:
		posts, err = s.posts.DeepestCandidates(ctx, model.StageCap)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s candidates: %w", stage, err)
	}
	return posts, nil
}

// Revalidate re-reads a candidate just before execution. It returns the fresh post,
// or a non-empty skip reason when the post is no longer workable for stage.
func (s *CandidateSelector) Revalidate(ctx context.Context, stage model.Stage, id string) (*model.Post, string, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, SkipNotFound, nil
		}
		return nil, "", fmt.Errorf("revalidate post %s: %w", id, err)
	}

	switch {
	case post.IsArchived():
		return post, SkipArchived, nil
	case !post.HasContent() && stage != model.StageDeep:
		return post, SkipNoContent, nil
	case stage.CompletedAt(post) != nil:
		return post, SkipDone, nil
	}

	switch stage {
	case model.StageQuick:
		if post.Classification != model.Unclassified {
			return post, SkipDone, nil
		}
	case model.StageDeep:
		if post.Classification != model.Positive {
			return post, SkipNotEligible, nil
		}
	case model.StageDeepest:
		if post.Classification != model.Positive || post.DeepAnalyzedAt == nil {
			return post, SkipNotEligible, nil
		}
	}
	return post, "", nil
}

func claimKey(stage model.Stage, id string) string {
	return "claim:" + string(stage) + ":" + id
}

// Claim acquires the claim for (stage, id) when claims are enabled. The returned
// release func is never nil. A store error is logged and treated as acquired, so a
// Redis outage degrades to the unclaimed behaviour instead of stalling the pipeline.
func (s *CandidateSelector) Claim(ctx context.Context, stage model.Stage, id, runID string) (bool, func()) {
	noop := func() {}
	if s.claims == nil {
		return true, noop
	}

	key := claimKey(stage, id)
	ok, err := s.claims.SetIfNotExists(ctx, key, []byte(runID), s.claimTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "claim store unavailable; proceeding unclaimed",
			"stage", stage,
			"post_id", id,
			"error", err,
		)
		return true, noop
	}
	if !ok {
		return false, noop
	}
	return true, func() {
		if _, err := s.claims.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.WarnContext(ctx, "failed to release claim", "key", key, "error", err)
		}
	}
}
