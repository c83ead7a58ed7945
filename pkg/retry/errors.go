package retry

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMaxAttempts = errors.New("retry: max attempts must be at least 1")
	// ErrAttemptTimeout is what TimedOut reports; it is never stored in Result.Errors.
	ErrAttemptTimeout = errors.New("retry: attempt timed out")
)

// PanicError is recorded in Result.Errors when an attempt panics.
type PanicError struct {
	Attempt int
	Value   any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("retry: attempt %d panicked: %v", e.Attempt, e.Value)
}
