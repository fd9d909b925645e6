package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobRunStatus represents the lifecycle state of a tracked invocation.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobRunStatus string

const (
	// JobRunStatusRunning indicates the invocation has started and not yet finished.
	JobRunStatusRunning JobRunStatus = "running"
	// JobRunStatusSuccess indicates the invocation finished without an unhandled error.
	JobRunStatusSuccess JobRunStatus = "success"
	// JobRunStatusFailed indicates the invocation aborted with an unhandled error.
	JobRunStatusFailed JobRunStatus = "failed"
)

// Job names recorded on job runs.
const (
	JobNamePipeline  = "psyop-pipeline"
	JobNameRetention = "posts-retention"
)

// ErrInvalidTransition is returned when a job run transition is not allowed.
var ErrInvalidTransition = errors.New("invalid job run transition")

// Valid returns true if the JobRunStatus is valid.
func (s JobRunStatus) Valid() bool {
	return s == JobRunStatusRunning || s == JobRunStatusSuccess || s == JobRunStatusFailed
}

// Terminal reports whether no further transitions are allowed from s.
func (s JobRunStatus) Terminal() bool {
	return s == JobRunStatusSuccess || s == JobRunStatusFailed
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s JobRunStatus) CanTransitionTo(next JobRunStatus) bool {
	return s == JobRunStatusRunning && next.Terminal()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *JobRunStatus) UnmarshalText(text []byte) error {
	v := JobRunStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobRunStatus: %q", string(text))
	}
	*s = v
	return nil
}

// JobRun is one tracked pipeline or retention invocation.
type JobRun struct {
	ID            string          `json:"id"`
	JobName       string          `json:"job_name"`
	TriggerSource string          `json:"trigger_source"`
	Status        JobRunStatus    `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	HTTPStatus    *int            `json:"http_status,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// CreateJobRunRequest is used to insert a new running job run.
type CreateJobRunRequest struct {
	JobName       string
	TriggerSource string
	Payload       json.RawMessage
}

// Validate validates the CreateJobRunRequest fields.
func (r *CreateJobRunRequest) Validate() error {
	if strings.TrimSpace(r.JobName) == "" {
		return errors.New("job name is required")
	}
	if strings.TrimSpace(r.TriggerSource) == "" {
		return errors.New("trigger source is required")
	}
	if len(r.Payload) > 0 && !json.Valid(r.Payload) {
		return errors.New("payload must be valid JSON")
	}
	return nil
}

// CompleteJobRunRequest moves a running job run to a terminal status.
type CompleteJobRunRequest struct {
	ID           string
	Status       JobRunStatus
	HTTPStatus   int
	ErrorMessage *string
	Metadata     json.RawMessage
	FinishedAt   time.Time
}

// Validate validates the CompleteJobRunRequest fields.
func (r *CompleteJobRunRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("id is required")
	}
	if !JobRunStatusRunning.CanTransitionTo(r.Status) {
		return fmt.Errorf("%w: running -> %s", ErrInvalidTransition, r.Status)
	}
	if len(r.Metadata) > 0 && !json.Valid(r.Metadata) {
		return errors.New("metadata must be valid JSON")
	}
	return nil
}
