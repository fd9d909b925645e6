package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PostFixture is a row inserted directly into the posts table.
type PostFixture struct {
	ID                         string
	Content                    *string
	Status                     string
	IsPsyop                    *bool
	ThreatLevel                *string
	QuickAnalyzedAt            *time.Time
	DeepAnalyzedAt             *time.Time
	DeepestAnalysisCompletedAt *time.Time
	PublishedAt                *time.Time
	CreatedAt                  time.Time
}

// PostBuilder provides a fluent interface for building post fixtures.
type PostBuilder struct {
	p PostFixture
}

// NewPost creates a PostBuilder for an active, unclassified post with content.
func NewPost() *PostBuilder {
	return &PostBuilder{p: PostFixture{
		ID:        uuid.NewString(),
		Content:   StringPtr("breaking: coordinated narrative detected"),
		Status:    "active",
		CreatedAt: TestTime(),
	}}
}

// ID sets the post id.
func (b *PostBuilder) ID(id string) *PostBuilder {
	b.p.ID = id
	return b
}

// Content sets the body; nil leaves it NULL.
func (b *PostBuilder) Content(c *string) *PostBuilder {
	b.p.Content = c
	return b
}

// Archived marks the post archived.
func (b *PostBuilder) Archived() *PostBuilder {
	b.p.Status = "archived"
	return b
}

// Flagged sets is_psyop = true.
func (b *PostBuilder) Flagged() *PostBuilder {
	b.p.IsPsyop = BoolPtr(true)
	return b
}

// Cleared sets is_psyop = false.
func (b *PostBuilder) Cleared() *PostBuilder {
	b.p.IsPsyop = BoolPtr(false)
	return b
}

// Threat sets the threat level text.
func (b *PostBuilder) Threat(level string) *PostBuilder {
	b.p.ThreatLevel = StringPtr(level)
	return b
}

// QuickAt sets quick_analyzed_at.
func (b *PostBuilder) QuickAt(t time.Time) *PostBuilder {
	b.p.QuickAnalyzedAt = TimePtr(t)
	return b
}

// DeepAt sets deep_analyzed_at.
func (b *PostBuilder) DeepAt(t time.Time) *PostBuilder {
	b.p.DeepAnalyzedAt = TimePtr(t)
	return b
}

// DeepestAt sets deepest_analysis_completed_at.
func (b *PostBuilder) DeepestAt(t time.Time) *PostBuilder {
	b.p.DeepestAnalysisCompletedAt = TimePtr(t)
	return b
}

// PublishedAt sets published_at.
func (b *PostBuilder) PublishedAt(t time.Time) *PostBuilder {
	b.p.PublishedAt = TimePtr(t)
	return b
}

// CreatedAt sets created_at.
func (b *PostBuilder) CreatedAt(t time.Time) *PostBuilder {
	b.p.CreatedAt = t
	return b
}

// Build returns the fixture.
func (b *PostBuilder) Build() PostFixture {
	return b.p
}

// Insert writes the fixture into the posts table and returns its id.
func (b *PostBuilder) Insert(t TestingTB, db *sql.DB) string {
	t.Helper()
	InsertPost(t, db, b.p)
	return b.p.ID
}

// InsertPost writes a fixture row into the posts table.
func InsertPost(t TestingTB, db *sql.DB, p PostFixture) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		INSERT INTO posts (id, content, status, is_psyop, threat_level,
			quick_analyzed_at, deep_analyzed_at, deepest_analysis_completed_at,
			published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Content, p.Status, p.IsPsyop, p.ThreatLevel,
		p.QuickAnalyzedAt, p.DeepAnalyzedAt, p.DeepestAnalysisCompletedAt,
		p.PublishedAt, p.CreatedAt.UTC(),
	)
	if err != nil {
		t.Fatalf("insert post %s: %v", p.ID, err)
	}
}

// SetStageTimestamp simulates the classification service completing a stage.
// column must be one of the three stage timestamp columns.
func SetStageTimestamp(t TestingTB, db *sql.DB, id, column string, at time.Time) {
	t.Helper()

	switch column {
	case "quick_analyzed_at", "deep_analyzed_at", "deepest_analysis_completed_at":
	default:
		t.Fatalf("unknown stage column %q", column)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "UPDATE posts SET "+column+" = $2 WHERE id = $1", id, at.UTC()); err != nil {
		t.Fatalf("set %s on %s: %v", column, id, err)
	}
}

// SetSetting overrides one app_settings value.
func SetSetting(t TestingTB, db *sql.DB, key, value string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value); err != nil {
		t.Fatalf("set setting %s: %v", key, err)
	}
}

// CountRows returns the number of rows in table matching the optional WHERE clause.
func CountRows(t TestingTB, db *sql.DB, table, where string, args ...any) int {
	t.Helper()

	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var n int
	if err := db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
