package model

import "time"

// Stage identifies one of the classification passes.
type Stage string

const (
	StageQuick   Stage = "quick"
	StageDeep    Stage = "deep"
	StageDeepest Stage = "deepest"
)

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageQuick, StageDeep, StageDeepest}
}

// Valid returns true if the stage is known.
func (s Stage) Valid() bool {
	return s == StageQuick || s == StageDeep || s == StageDeepest
}

// TimestampColumn returns the posts column the classifier sets when the stage completes.
func (s Stage) TimestampColumn() string {
	switch s {
	case StageQuick:
		return "quick_analyzed_at"
	case StageDeep:
		return "deep_analyzed_at"
	case StageDeepest:
		return "deepest_analysis_completed_at"
	}
	return ""
}

// Endpoint returns the logical endpoint name used for usage accounting.
func (s Stage) Endpoint() string {
	switch s {
	case StageQuick:
		return "analyze-quick"
	case StageDeep:
		return "analyze-deep"
	case StageDeepest:
		return "analyze-deepest"
	}
	return ""
}

// CompletedAt returns the stage completion timestamp recorded on the post.
func (s Stage) CompletedAt(p *Post) *time.Time {
	switch s {
	case StageQuick:
		return p.QuickAnalyzedAt
	case StageDeep:
		return p.DeepAnalyzedAt
	case StageDeepest:
		return p.DeepestAnalysisCompletedAt
	}
	return nil
}
