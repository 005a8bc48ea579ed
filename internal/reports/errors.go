package reports

import (
	"fmt"
)

// InvalidParameterError reports a request parameter that failed validation.
// Detected before any store call; never retried.
type InvalidParameterError struct {
	Field   string
	Message string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Message)
}

func invalidParam(field, format string, args ...interface{}) error {
	return &InvalidParameterError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StoreUnavailableError wraps a store query failure. Retry policy, if any,
// belongs to the store adapter, not to this package.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return "report store unavailable: " + e.Err.Error()
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
