package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/narrativewatch/triage/internal/domain/model"
	apperrors "github.com/narrativewatch/triage/internal/errors"
)

const jobRunColumns = `id, job_name, trigger_source, status, started_at, finished_at,
	http_status, error_message, payload, metadata`

// JobRunRepoConfig holds optional dependencies for JobRunRepo.
type JobRunRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRunRepo persists job run lifecycle rows.
type JobRunRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRunRepo creates a new JobRunRepo.
func NewJobRunRepo(db *sql.DB, cfg JobRunRepoConfig) *JobRunRepo {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRunRepo{
		DB:           db,
		timeProvider: timeProviderOrReal(cfg.TimeProvider),
		logger:       logger.With("component", "job_run_repo"),
	}
}

func jsonOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// Create inserts a running job run.
func (r *JobRunRepo) Create(ctx context.Context, req *model.CreateJobRunRequest) (*model.JobRun, error) {
	if req == nil {
		return nil, ErrNilRecord
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job run")
	}

	id := uuid.NewString()
	startedAt := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO job_runs (id, job_name, trigger_source, status, started_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+jobRunColumns,
		id, req.JobName, req.TriggerSource, string(model.JobRunStatusRunning), startedAt, jsonOrNil(req.Payload),
	)
	run, err := scanJobRun(row)
	if err != nil {
		return nil, fmt.Errorf("create job run: %w", apperrors.MapDBError(err))
	}
	return run, nil
}

// Complete moves a running job run to a terminal status. It returns false when the row
// does not exist or was already finished, so each run transitions at most once.
func (r *JobRunRepo) Complete(ctx context.Context, req *model.CompleteJobRunRequest) (bool, error) {
	if req == nil {
		return false, ErrNilRecord
	}
	if err := req.Validate(); err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job run completion")
	}

	finishedAt := req.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = r.timeProvider.Now()
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE job_runs
		SET status = $2,
			finished_at = $3,
			http_status = $4,
			error_message = $5,
			metadata = $6
		WHERE id = $1 AND status = 'running'`,
		req.ID, string(req.Status), finishedAt.UTC(), req.HTTPStatus, nullString(req.ErrorMessage), jsonOrNil(req.Metadata),
	)
	if err != nil {
		return false, fmt.Errorf("complete job run %s: %w", req.ID, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		r.logger.WarnContext(ctx, "job run not in running state", "job_run_id", req.ID, "status", req.Status)
	}
	return n > 0, nil
}

// GetByID returns a single job run.
func (r *JobRunRepo) GetByID(ctx context.Context, id string) (*model.JobRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("job run %s not found", id)
	}
	run, err := scanJobRun(r.DB.QueryRowContext(ctx,
		`SELECT `+jobRunColumns+` FROM job_runs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("job run %s not found", id)
		}
		return nil, fmt.Errorf("get job run %s: %w", id, apperrors.MapDBError(err))
	}
	return run, nil
}

func scanJobRun(s rowScanner) (*model.JobRun, error) {
	var (
		run        model.JobRun
		finishedAt sql.NullTime
		httpStatus sql.NullInt64
		errMsg     sql.NullString
		payload    []byte
		metadata   []byte
	)
	if err := s.Scan(
		&run.ID, &run.JobName, &run.TriggerSource, &run.Status, &run.StartedAt, &finishedAt,
		&httpStatus, &errMsg, &payload, &metadata,
	); err != nil {
		return nil, err
	}
	run.FinishedAt = nullTimePtr(finishedAt)
	if httpStatus.Valid {
		v := int(httpStatus.Int64)
		run.HTTPStatus = &v
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	if len(payload) > 0 {
		run.Payload = json.RawMessage(payload)
	}
	if len(metadata) > 0 {
		run.Metadata = json.RawMessage(metadata)
	}
	return &run, nil
}
