package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRunStatus_Transitions(t *testing.T) {
	assert.True(t, JobRunStatusRunning.CanTransitionTo(JobRunStatusSuccess))
	assert.True(t, JobRunStatusRunning.CanTransitionTo(JobRunStatusFailed))
	assert.False(t, JobRunStatusRunning.CanTransitionTo(JobRunStatusRunning))
	assert.False(t, JobRunStatusSuccess.CanTransitionTo(JobRunStatusFailed))
	assert.False(t, JobRunStatusFailed.CanTransitionTo(JobRunStatusSuccess))
	assert.False(t, JobRunStatusRunning.Terminal())
	assert.True(t, JobRunStatusFailed.Terminal())
}

func TestJobRunStatus_UnmarshalText(t *testing.T) {
	var s JobRunStatus
	require.NoError(t, s.UnmarshalText([]byte(" Failed ")))
	assert.Equal(t, JobRunStatusFailed, s)
	assert.Error(t, s.UnmarshalText([]byte("pending")))
}

func TestCreateJobRunRequest_Validate(t *testing.T) {
	req := &CreateJobRunRequest{JobName: JobNamePipeline, TriggerSource: "http"}
	require.NoError(t, req.Validate())

	req.Payload = json.RawMessage(`{"bad"`)
	require.Error(t, req.Validate())

	req = &CreateJobRunRequest{TriggerSource: "http"}
	require.Error(t, req.Validate())
}

func TestCompleteJobRunRequest_Validate(t *testing.T) {
	req := &CompleteJobRunRequest{ID: "abc", Status: JobRunStatusSuccess, HTTPStatus: 200}
	require.NoError(t, req.Validate())

	req.Status = JobRunStatusRunning
	err := req.Validate()
	require.ErrorIs(t, err, ErrInvalidTransition)

	req = &CompleteJobRunRequest{Status: JobRunStatusFailed}
	require.Error(t, req.Validate())
}
