// Package model defines the core data types shared by the triage pipeline and the retention engine.
package model

import (
	"strings"
	"time"
)

// PostStatus is the lifecycle status of a post.
type PostStatus string

const (
	// PostStatusActive marks a post that is still part of the working set.
	PostStatusActive PostStatus = "active"
	// PostStatusArchived marks a post that was kept past the retention window.
	PostStatusArchived PostStatus = "archived"
)

// Classification is the tri-state outcome of the psyop classification.
// It maps to the nullable boolean column is_psyop.
type Classification int

const (
	// Unclassified means no classifier has decided yet (is_psyop IS NULL).
	Unclassified Classification = iota
	// Positive means the post was flagged (is_psyop = true).
	Positive
	// Negative means the post was cleared (is_psyop = false).
	Negative
)

// ClassificationFromNullable converts the storage representation into a Classification.
func ClassificationFromNullable(v *bool) Classification {
	switch {
	case v == nil:
		return Unclassified
	case *v:
		return Positive
	default:
		return Negative
	}
}

// Nullable converts the Classification into its storage representation.
func (c Classification) Nullable() *bool {
	switch c {
	case Positive:
		v := true
		return &v
	case Negative:
		v := false
		return &v
	case Unclassified:
		return nil
	}
	return nil
}

func (c Classification) String() string {
	switch c {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case Unclassified:
		return "unclassified"
	}
	return "unknown"
}

// ThreatLevel is the ordered threat assessment written by the classifier.
type ThreatLevel int

const (
	// ThreatUnknown is used when no threat level has been recorded.
	ThreatUnknown ThreatLevel = iota
	ThreatLow
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

// ParseThreatLevel maps the stored text value onto a ThreatLevel. Unknown values map to ThreatUnknown.
func ParseThreatLevel(s string) ThreatLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ThreatLow
	case "medium":
		return ThreatMedium
	case "high":
		return ThreatHigh
	case "critical":
		return ThreatCritical
	default:
		return ThreatUnknown
	}
}

func (t ThreatLevel) String() string {
	switch t {
	case ThreatLow:
		return "Low"
	case ThreatMedium:
		return "Medium"
	case ThreatHigh:
		return "High"
	case ThreatCritical:
		return "Critical"
	case ThreatUnknown:
		return ""
	}
	return ""
}

// AtLeast reports whether t ranks at or above other.
func (t ThreatLevel) AtLeast(other ThreatLevel) bool {
	return t >= other
}

// Post is the unit of work moving through the classification pipeline.
type Post struct {
	ID                         string         `json:"id"`
	Content                    *string        `json:"content,omitempty"`
	Status                     PostStatus     `json:"status"`
	Classification             Classification `json:"-"`
	ThreatLevel                ThreatLevel    `json:"-"`
	PsyopRiskScore             *float64       `json:"psyop_risk_score,omitempty"`
	QuickAnalyzedAt            *time.Time     `json:"quick_analyzed_at,omitempty"`
	DeepAnalyzedAt             *time.Time     `json:"deep_analyzed_at,omitempty"`
	DeepestAnalysisCompletedAt *time.Time     `json:"deepest_analysis_completed_at,omitempty"`
	PublishedAt                *time.Time     `json:"published_at,omitempty"`
	CreatedAt                  time.Time      `json:"created_at"`
}

// HasContent reports whether the post has a non-blank body.
func (p *Post) HasContent() bool {
	return p.Content != nil && strings.TrimSpace(*p.Content) != ""
}

// IsArchived reports whether the post has been archived.
func (p *Post) IsArchived() bool {
	return p.Status == PostStatusArchived
}

// Important reports whether an aging post must be kept: flagged, or High/Critical threat.
// The flag is compared strictly; an unclassified post is never important by flag alone.
func (p *Post) Important() bool {
	return p.Classification == Positive || p.ThreatLevel.AtLeast(ThreatHigh)
}

// Disposable reports whether an aging post may be hard-deleted: cleared and Low/Medium threat.
func (p *Post) Disposable() bool {
	if p.Classification != Negative {
		return false
	}
	return p.ThreatLevel == ThreatLow || p.ThreatLevel == ThreatMedium
}

// RetentionOutcome is the decision the retention policy makes for one post.
type RetentionOutcome string

const (
	RetentionUntouched RetentionOutcome = "untouched"
	RetentionArchive   RetentionOutcome = "archive"
	RetentionDelete    RetentionOutcome = "delete"
)

// RetentionOutcome evaluates the retention policy table for a post relative to the cutoff.
// ts is the timestamp the deployment compares against the cutoff.
func (p *Post) RetentionOutcome(ts, cutoff time.Time) RetentionOutcome {
	if !ts.Before(cutoff) {
		return RetentionUntouched
	}
	if p.IsArchived() {
		return RetentionUntouched
	}

	switch p.Classification {
	case Positive:
		return RetentionArchive
	case Negative:
		if p.ThreatLevel.AtLeast(ThreatHigh) {
			return RetentionArchive
		}
		if p.Disposable() {
			return RetentionDelete
		}
		return RetentionUntouched
	case Unclassified:
		if p.ThreatLevel.AtLeast(ThreatHigh) {
			return RetentionArchive
		}
		return RetentionUntouched
	}
	return RetentionUntouched
}
