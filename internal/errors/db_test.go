package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_ContextErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: fmt.Errorf("query: %w", context.Canceled), wantCode: ErrCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			if GetCode(err) != tt.wantCode {
				t.Errorf("MapDBError() code = %v, want %v", GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestMapDBError_NoRows(t *testing.T) {
	for _, in := range []error{sql.ErrNoRows, pgx.ErrNoRows, fmt.Errorf("get post: %w", sql.ErrNoRows)} {
		err := MapDBError(in)
		if !IsNotFound(err) {
			t.Errorf("MapDBError(%v) should be NotFound, got %v", in, GetCode(err))
		}
		if !errors.Is(err, in) && !errors.Is(err, sql.ErrNoRows) {
			t.Errorf("MapDBError(%v) lost its cause", in)
		}
	}
}

func TestMapDBError_PgErrors(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantCode  ErrorCode
		wantField string
	}{
		{
			name:      "unique violation with column",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "key"},
			wantCode:  ErrCodeConflict,
			wantField: "key",
		},
		{
			name:      "unique violation parsed from detail",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: `Key (stat_date)=(2025-03-10) already exists.`},
			wantCode:  ErrCodeConflict,
			wantField: "stat_date",
		},
		{
			name:      "check violation",
			pgErr:     &pgconn.PgError{Code: pgerrcode.CheckViolation, TableName: "job_runs", ColumnName: "status"},
			wantCode:  ErrCodeValidation,
			wantField: "status",
		},
		{
			name:      "not null violation",
			pgErr:     &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "job_name"},
			wantCode:  ErrCodeValidation,
			wantField: "job_name",
		},
		{
			name:     "connection failure",
			pgErr:    &pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			wantCode: ErrCodeUnavailable,
		},
		{
			name:     "admin shutdown",
			pgErr:    &pgconn.PgError{Code: pgerrcode.AdminShutdown},
			wantCode: ErrCodeUnavailable,
		},
		{
			name:     "undefined table",
			pgErr:    &pgconn.PgError{Code: pgerrcode.UndefinedTable},
			wantCode: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			if GetCode(err) != tt.wantCode {
				t.Errorf("code = %v, want %v", GetCode(err), tt.wantCode)
			}
			var appErr *AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *AppError, got %T", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", appErr.Field, tt.wantField)
			}
			var pgErr *pgconn.PgError
			if !errors.As(err, &pgErr) {
				t.Error("expected PgError to remain in the chain")
			}
		})
	}
}

func TestMapDBError_PassThrough(t *testing.T) {
	orig := errors.New("boom")
	if err := MapDBError(orig); err != orig {
		t.Errorf("MapDBError() = %v, want original error", err)
	}
}

func TestMapTableToDomain(t *testing.T) {
	cases := map[string]string{
		"posts":             "post",
		" JOB_RUNS ":        "job run",
		"source_statistics": "source statistics",
		"":                  "record",
	}
	for in, want := range cases {
		if got := mapTableToDomain(in); got != want {
			t.Errorf("mapTableToDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
