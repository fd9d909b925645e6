package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrInvalidTimestampField is returned when a retention query names an unsupported column.
	ErrInvalidTimestampField = errors.New("invalid retention timestamp field")
	// ErrNilRecord is returned when an insert is called without a record.
	ErrNilRecord = errors.New("record is required")
)
