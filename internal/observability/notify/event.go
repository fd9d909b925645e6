// Package notify defines the payload and sink contract for job run failure alerts.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
)

// RunFailurePayload captures the canonical data we emit when a job run fails.
type RunFailurePayload struct {
	RunID         string
	JobName       string
	TriggerSource string
	Error         string
	ErrorClass    string
	Severity      string
	OccurredAt    time.Time
	Metadata      json.RawMessage
}

// PrettyMetadata returns the metadata indented for humans, or "" when there is none.
// Invalid JSON is returned verbatim.
func (p RunFailurePayload) PrettyMetadata() string {
	raw := bytes.TrimSpace(p.Metadata)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Document returns the payload as a generic JSON-like map, the shape posted to plain webhooks.
func (p RunFailurePayload) Document() map[string]any {
	occurredAt := p.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	doc := map[string]any{
		"run_id":         p.RunID,
		"job_name":       p.JobName,
		"trigger_source": p.TriggerSource,
		"error":          p.Error,
		"error_class":    p.ErrorClass,
		"severity":       p.Severity,
		"occurred_at":    occurredAt.UTC().Format(time.RFC3339),
		"text":           p.Summary(),
	}
	var meta any
	if len(bytes.TrimSpace(p.Metadata)) > 0 && json.Unmarshal(p.Metadata, &meta) == nil {
		doc["metadata"] = meta
	}
	return doc
}

// Summary is a one-line description of the failure.
func (p RunFailurePayload) Summary() string {
	name := p.JobName
	if name == "" {
		name = "job"
	}
	s := name + " run failed"
	if p.Error != "" {
		s += ": " + p.Error
	}
	return s
}

// Sink describes a destination capable of consuming run failure notifications.
type Sink interface {
	SendRunFailure(ctx context.Context, payload RunFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload RunFailurePayload) error

// SendRunFailure implements the Sink interface.
func (f SinkFunc) SendRunFailure(ctx context.Context, payload RunFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
