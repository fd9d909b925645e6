// Package metrics emits the pipeline and retention metrics through a StatsD sink.
package metrics

import (
	"time"

	obserrors "github.com/narrativewatch/triage/internal/observability/errors"
	"github.com/narrativewatch/triage/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultNoop    = "noop"
)

// RunMetric captures one finished job run.
type RunMetric struct {
	JobName  string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitRun emits job_run.transition and a duration timing for a finished run.
func EmitRun(sink statsd.Sink, in RunMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_name": in.JobName,
		"result":   in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job_run.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job_run.duration", in.Duration, CloneTags(tags))
	}
}

// EmitItem counts one pipeline item outcome.
func EmitItem(sink statsd.Sink, stage, result string) {
	if sink == nil {
		return
	}
	sink.Count("pipeline.item", 1, map[string]string{"stage": stage, "result": result})
}

// EmitClassifierLatency records the latency of one classification call.
func EmitClassifierLatency(sink statsd.Sink, stage string, d time.Duration) {
	if sink == nil || d <= 0 {
		return
	}
	sink.Timing("classifier.latency", d, map[string]string{"stage": stage})
}

// EmitRetentionPosts counts posts archived or deleted by one retention run.
func EmitRetentionPosts(sink statsd.Sink, action string, n int) {
	if sink == nil || n <= 0 {
		return
	}
	sink.Count("retention.posts", int64(n), map[string]string{"action": action})
}

// EmitAlert counts one alert delivery attempt.
func EmitAlert(sink statsd.Sink, channel string, err error) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	sink.Count("alert.sent", 1, map[string]string{"sink": channel, "result": result})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
