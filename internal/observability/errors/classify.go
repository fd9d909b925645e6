// Package errors turns arbitrary errors into low-cardinality class names for metric tags and alerts.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"
)

// Classifier is implemented by errors that know their own class name.
type Classifier interface {
	ErrorClass() string
}

// Classify returns a normalized error type name suitable for tagging metrics/logs.
// Errors implementing Classifier anywhere in the chain win; context errors map to
// "canceled" and "timeout"; otherwise the innermost concrete type is used.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var c Classifier
	if goerrors.As(err, &c) {
		if class := strings.TrimSpace(c.ErrorClass()); class != "" {
			return class
		}
	}
	switch {
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
