package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"
)

type stageError struct{}

func (*stageError) Error() string { return "stage" }

type httpStatusError struct{ code int }

func (e httpStatusError) Error() string { return "status" }

func (e httpStatusError) ErrorClass() string {
	if e.code >= 500 {
		return "upstream_5xx"
	}
	return ""
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", goerrors.New("boom"), "errors_errorstring"},
		{"wrapped pointer type", fmt.Errorf("run: %w", &stageError{}), "errors_stageerror"},
		{"deadline", fmt.Errorf("select: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", fmt.Errorf("select: %w", context.Canceled), "canceled"},
		{"self classified", fmt.Errorf("call: %w", httpStatusError{code: 502}), "upstream_5xx"},
		{"empty self class falls back", httpStatusError{code: 400}, "errors_httpstatuserror"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
