// Package conservation checks that operations preserve resource counts.
//
// Each operation belongs to a class. Conserving operations must leave the
// total unchanged. Modulo operations (cycling) must land exactly on
// before mod k. A failed check is an annotation on the trace, not an
// error: the run continues and is classified afterwards.
package conservation

import "fmt"

// Class is the conservation rule an operation is held to.
type Class uint8

const (
	// Conserve requires after == before.
	Conserve Class = iota
	// Modulo requires after == before mod k.
	Modulo
	// None exempts the operation. HALT and no-op steps use it.
	None
)

func (c Class) String() string {
	switch c {
	case Conserve:
		return "conserve"
	case Modulo:
		return "modulo"
	case None:
		return "none"
	default:
		return fmt.Sprintf("class(%d)", c)
	}
}

// ParseClass maps a class name back to its value.
func ParseClass(s string) (Class, bool) {
	for _, c := range []Class{Conserve, Modulo, None} {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Validate reports whether the transition before -> after satisfies class.
// k is only read for Modulo and must be positive.
func Validate(class Class, before, after, k int64) bool {
	switch class {
	case Conserve:
		return before == after
	case Modulo:
		return k > 0 && after == before%k
	case None:
		return true
	default:
		return false
	}
}

// Check is the annotation recorded for one operation.
type Check struct {
	Class   Class
	Before  int64
	After   int64
	Modulus int64
	Held    bool
}

// Evaluate runs Validate and returns the annotation.
func Evaluate(class Class, before, after, k int64) Check {
	return Check{
		Class:   class,
		Before:  before,
		After:   after,
		Modulus: k,
		Held:    Validate(class, before, after, k),
	}
}

// Stats aggregates checks over a run.
type Stats struct {
	Operations int
	Violations int
	Exempt     int
}

// Record folds c into the totals.
func (s *Stats) Record(c Check) {
	s.Operations++
	if c.Class == None {
		s.Exempt++
	}
	if !c.Held {
		s.Violations++
	}
}

// Clean reports whether no violation was recorded.
func (s Stats) Clean() bool {
	return s.Violations == 0
}
