package audit

import "errors"

var (
	// ErrInvalidFilter is returned for filters naming an unknown target.
	ErrInvalidFilter = errors.New("audit: invalid filter")

	// ErrInvalidEntry is returned when a record is missing required fields.
	ErrInvalidEntry = errors.New("audit: invalid entry")
)
