package vm

import (
	"errors"
	"fmt"

	"github.com/lumsvm/vorax/internal/isa"
)

var (
	// ErrRunning is returned when an operation needs the engine between runs.
	ErrRunning = errors.New("vm: engine is running")

	// ErrNotIdle is returned by Seed after a run has started.
	ErrNotIdle = errors.New("vm: engine is not idle")

	// ErrLayoutMismatch is returned when a program was validated against a
	// different machine shape.
	ErrLayoutMismatch = errors.New("vm: program layout does not match machine")

	// ErrUnknownContainer is returned for a zone or buffer name the
	// machine does not have.
	ErrUnknownContainer = errors.New("vm: unknown container")
)

// RunError wraps a fatal dispatch error with the step it happened on.
type RunError struct {
	Tick int64
	PC   int
	Op   isa.OpCode
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("fault at tick %d pc %d (%s): %v", e.Tick, e.PC, e.Op, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsRunError returns true if err wraps a *RunError.
func IsRunError(err error) bool {
	var re *RunError
	return errors.As(err, &re)
}

// SinkError reports a trace sink that refused a record.
type SinkError struct {
	RunID string
	Tick  int64
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("trace sink failed for run %s tick %d: %v", e.RunID, e.Tick, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// IsSinkError returns true if err wraps a *SinkError.
func IsSinkError(err error) bool {
	var se *SinkError
	return errors.As(err, &se)
}
