package ownership

import (
	"errors"
	"fmt"
)

// Reason classifies a linear violation.
type Reason string

const (
	ReasonNotFound  Reason = "not found"
	ReasonConsumed  Reason = "already consumed"
	ReasonBorrowed  Reason = "currently borrowed"
	ReasonExists    Reason = "already exists"
	ReasonArity     Reason = "invalid arity"
	ReasonDuplicate Reason = "duplicate id"
	ReasonUnknownOp Reason = "unknown operation"
)

// LinearViolation is returned when an operation would reuse, duplicate or
// lose track of a resource.
type LinearViolation struct {
	Op       Op
	ID       string
	Reason   Reason
	Borrower string // set when Reason is ReasonBorrowed
}

func (e *LinearViolation) Error() string {
	if e.Borrower != "" {
		return fmt.Sprintf("linear violation: %s %q: %s by %s", e.Op, e.ID, e.Reason, e.Borrower)
	}
	if e.ID == "" {
		return fmt.Sprintf("linear violation: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("linear violation: %s %q: %s", e.Op, e.ID, e.Reason)
}

// NoActiveBorrow is returned when ReturnBorrow names a resource that is
// not on top of the borrow stack.
type NoActiveBorrow struct {
	ID  string
	Top string // id of the innermost open borrow, empty if none
}

func (e *NoActiveBorrow) Error() string {
	if e.Top == "" {
		return fmt.Sprintf("no active borrow for %q", e.ID)
	}
	return fmt.Sprintf("no active borrow for %q: innermost borrow is %q", e.ID, e.Top)
}

// IsLinearViolation returns true if err wraps a *LinearViolation.
func IsLinearViolation(err error) bool {
	var lv *LinearViolation
	return errors.As(err, &lv)
}

// IsNoActiveBorrow returns true if err wraps a *NoActiveBorrow.
func IsNoActiveBorrow(err error) bool {
	var nb *NoActiveBorrow
	return errors.As(err, &nb)
}

// ViolationReason extracts the reason from a wrapped *LinearViolation.
func ViolationReason(err error) (Reason, bool) {
	var lv *LinearViolation
	if errors.As(err, &lv) {
		return lv.Reason, true
	}
	return "", false
}
