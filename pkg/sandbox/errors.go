package sandbox

import (
	"errors"
	"fmt"
)

// ErrNotStarted is returned when a tool runs before its sandbox session
// is active.
var ErrNotStarted = errors.New("sandbox session not started")

// StartError wraps a failure to start or prepare a sandbox session.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("starting sandbox session: %v", e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
