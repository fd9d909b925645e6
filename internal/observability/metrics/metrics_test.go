package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/narrativewatch/triage/internal/observability/statsd"
)

func TestEmitRunTagsErrorClass(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitRun(rec, RunMetric{
		JobName:  "psyop-pipeline",
		Result:   ResultError,
		Duration: time.Second,
		Err:      errors.New("boom"),
	})

	counts := rec.Counts("job_run.transition")
	if len(counts) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(counts))
	}
	if counts[0].Tags["error_class"] == "" {
		t.Fatalf("expected error_class tag, got %v", counts[0].Tags)
	}
	if len(rec.Timings("job_run.duration")) != 1 {
		t.Fatal("expected duration timing")
	}
}

func TestEmitHelpersIgnoreNilSink(t *testing.T) {
	EmitRun(nil, RunMetric{})
	EmitItem(nil, "quick", ResultSuccess)
	EmitRetentionPosts(nil, "archive", 3)
	EmitAlert(nil, "slack", nil)
	EmitClassifierLatency(nil, "deep", time.Second)
}

func TestEmitRetentionPostsSkipsZero(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitRetentionPosts(rec, "delete", 0)
	EmitRetentionPosts(rec, "delete", 4)

	counts := rec.Counts("retention.posts")
	if len(counts) != 1 || counts[0].Value != 4 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestEmitAlertResult(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitAlert(rec, "pagerduty", errors.New("down"))
	if got := rec.Counts("alert.sent")[0].Tags["result"]; got != ResultError {
		t.Fatalf("expected error result, got %s", got)
	}
}
