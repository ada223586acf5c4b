package scenario

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError means an expected condition was not observed within its bound.
// It is the only assertion failure a scenario produces.
type TimeoutError struct {
	Expected string
	Observed string
	Timeout  time.Duration
	LastErr  error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.Expected)
	if e.Observed != "" {
		msg += fmt.Sprintf(" (last observed: %s)", e.Observed)
	}
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.LastErr)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// StepError locates a failure within a scenario
type StepError struct {
	Scenario string
	Index    int
	Step     string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %d (%s): %v", e.Scenario, e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is, or wraps, a TimeoutError
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
