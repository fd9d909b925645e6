// Package failurenotifier fans job run failure alerts out to every configured sink.
package failurenotifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/narrativewatch/triage/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// OnResult, when set, is called once per sink delivery attempt.
	OnResult func(sink string, err error)
}

// Service dispatches failure events to all registered sinks.
type Service struct {
	logger   *slog.Logger
	sinks    []SinkRegistration
	onResult func(sink string, err error)
}

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{Name: name, Sink: entry.Sink})
	}

	return &Service{
		logger:   logger.With("component", "failure_notifier"),
		sinks:    sinks,
		onResult: opts.OnResult,
	}
}

// NotifyRunFailure fans the payload out to all sinks and waits for every delivery.
// A failing sink is logged and never prevents delivery to the others.
func (s *Service) NotifyRunFailure(ctx context.Context, payload notify.RunFailurePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}

	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := entry.Sink.SendRunFailure(ctx, payload)
			if err != nil {
				s.logger.ErrorContext(ctx, "failure notifier delivery error",
					"sink", entry.Name,
					"job_run_id", payload.RunID,
					"job_name", payload.JobName,
					"error", err,
				)
			}
			if s.onResult != nil {
				s.onResult(entry.Name, err)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}
