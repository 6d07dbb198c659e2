package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidAsOf = errors.New("invalid_as_of_date")

type ErrorKind string

const (
	// KindConfiguration marks authoring faults in rate data or selections.
	// They are not retried; an administrator has to fix the table.
	KindConfiguration ErrorKind = "configuration"
	KindInternal      ErrorKind = "internal"
)

// RatingError is returned for runs that ended with status=error. The run is
// recorded before the error is returned.
type RatingError struct {
	Kind  ErrorKind
	Code  string
	RunID string
	Err   error
}

func (e *RatingError) Error() string {
	if e.Kind == KindInternal {
		return "rating failed: internal error"
	}
	return fmt.Sprintf("rating failed: %v", e.Err)
}

func (e *RatingError) Unwrap() error { return e.Err }
