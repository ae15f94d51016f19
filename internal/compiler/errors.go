package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a problem in a program document.
//
// Step is the index of the offending step, or -1 for document-level
// fields such as seeds. Err holds the underlying isa error when there
// is one, so isa.IsInvalidOperand and friends see through it.
type CompileError struct {
	Step    int
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	var where string
	switch {
	case e.Pos.IsValid():
		where = fmt.Sprintf("%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	case e.Step >= 0:
		where = fmt.Sprintf("step %d: ", e.Step)
	}
	return fmt.Sprintf("%s%s: %s", where, e.Field, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Step:    -1,
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
			Err:     err,
		}
	}
	return err
}
