package tracking

import (
	"errors"
	"fmt"
)

// ErrReportNotFound is returned when the referenced report does not exist in
// the store. Unlike the history listing, the per-report endpoints address a
// specific document, so absence here is an error.
var ErrReportNotFound = errors.New("report not found")

// InvalidTransitionError reports a status change the lifecycle rules forbid.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move report from %q to %q", e.From, e.To)
}

// ValidationError reports an input field that failed the tracking rules.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
