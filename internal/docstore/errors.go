package docstore

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is fatal for the affected operation or subscription:
// surfaced once, never retried.
var ErrPermissionDenied = errors.New("docstore: permission denied")

// RetryableError wraps transient network failures. The store never retries
// on its own; callers decide.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("docstore: transient failure: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient failure worth a manual retry.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
