package config

import (
	"fmt"
	"strings"
	"time"
)

// PipelineConfig contains batch runner configuration that is fixed per deployment.
// Per-run knobs (enabled flag, batch size) live in the app_settings table.
type PipelineConfig struct {
	// ClaimEnabled makes every item acquire a short-lived Redis claim before it is sent
	// to the classifier. Off by default: overlapping runs may duplicate work instead.
	ClaimEnabled bool `env:"PIPELINE_CLAIM_ENABLED" envDefault:"false"`

	// ClaimTTL is how long a claim is held.
	ClaimTTL time.Duration `env:"PIPELINE_CLAIM_TTL" envDefault:"10m"`
}

// Sanitize applies guardrails to pipeline configuration values.
func (p *PipelineConfig) Sanitize() {
	if p.ClaimTTL < 10*time.Second {
		p.ClaimTTL = 10 * time.Second
	}
}

// ClassifierConfig configures the outbound classification service client.
type ClassifierConfig struct {
	BaseURL     string        `env:"CLASSIFIER_BASE_URL"     envDefault:"http://localhost:9000"`
	APIKey      string        `env:"CLASSIFIER_API_KEY"`
	Timeout     time.Duration `env:"CLASSIFIER_TIMEOUT"      envDefault:"120s"`
	QuickPath   string        `env:"CLASSIFIER_QUICK_PATH"   envDefault:"/analyze-quick"`
	DeepPath    string        `env:"CLASSIFIER_DEEP_PATH"    envDefault:"/analyze-deep"`
	DeepestPath string        `env:"CLASSIFIER_DEEPEST_PATH" envDefault:"/analyze-deepest"`

	// RateLimit caps outbound requests per second. Zero disables pacing.
	RateLimit float64 `env:"CLASSIFIER_RATE_LIMIT" envDefault:"0"`
}

// Sanitize normalises the classifier configuration.
func (c *ClassifierConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	c.QuickPath = normalizePath(c.QuickPath, "/analyze-quick")
	c.DeepPath = normalizePath(c.DeepPath, "/analyze-deep")
	c.DeepestPath = normalizePath(c.DeepestPath, "/analyze-deepest")
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
}

func normalizePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// TimestampField selects which post timestamp the retention cutoff is compared against.
type TimestampField string

const (
	// TimestampFieldCreatedAt compares against ingestion time.
	TimestampFieldCreatedAt TimestampField = "created_at"
	// TimestampFieldPublishedAt compares against business/publish time.
	TimestampFieldPublishedAt TimestampField = "published_at"
)

// Valid returns true if the field is one of the supported post timestamp columns.
func (f TimestampField) Valid() bool {
	return f == TimestampFieldCreatedAt || f == TimestampFieldPublishedAt
}

// UnmarshalText implements encoding.TextUnmarshaler for TimestampField to allow env parsing.
func (f *TimestampField) UnmarshalText(text []byte) error {
	v := TimestampField(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid TimestampField: %q (valid options: created_at, published_at)", v)
	}
	*f = v
	return nil
}

// RetentionConfig contains retention engine configuration.
// The retention window itself is read from app_settings on every run.
type RetentionConfig struct {
	// TimestampField is the post column the cutoff is compared against.
	TimestampField TimestampField `env:"RETENTION_TIMESTAMP_FIELD" envDefault:"created_at"`

	// BatchSize is the maximum number of posts read or mutated per statement.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"RETENTION_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to retention configuration values.
func (r *RetentionConfig) Sanitize() {
	if !r.TimestampField.Valid() {
		r.TimestampField = TimestampFieldCreatedAt
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}

// UsageConfig holds per-million-token prices used for cost accounting.
type UsageConfig struct {
	InputPricePerMTok  float64 `env:"USAGE_INPUT_PRICE_PER_MTOK"  envDefault:"3.00"`
	OutputPricePerMTok float64 `env:"USAGE_OUTPUT_PRICE_PER_MTOK" envDefault:"15.00"`
}

// Sanitize clamps negative prices to zero.
func (u *UsageConfig) Sanitize() {
	if u.InputPricePerMTok < 0 {
		u.InputPricePerMTok = 0
	}
	if u.OutputPricePerMTok < 0 {
		u.OutputPricePerMTok = 0
	}
}
