package vm

import (
	"errors"
	"fmt"

	"github.com/lumsvm/vorax/internal/isa"
)

// DefaultBudget is the energy a machine starts each run with.
const DefaultBudget int64 = 1000

// Meter tracks the energy budget of one run.
//
// A step is refused before it runs if its cost exceeds what is left.
// Refusal is a normal halt, not a fault.
type Meter struct {
	budget int64
	used   int64
}

// NewMeter creates a meter with the given budget.
func NewMeter(budget int64) *Meter {
	return &Meter{budget: budget}
}

// Check reports whether cost can be charged. It returns *ExhaustedError
// when the meter is empty or cost is larger than the remainder.
func (m *Meter) Check(pc int, op isa.OpCode, cost int64) error {
	left := m.Remaining()
	if left <= 0 || cost > left {
		return &ExhaustedError{PC: pc, Op: op, Cost: cost, Remaining: left}
	}
	return nil
}

// Charge deducts cost. Callers run Check first.
func (m *Meter) Charge(cost int64) int64 {
	m.used += cost
	return m.Remaining()
}

// Reset refills the meter.
func (m *Meter) Reset() {
	m.used = 0
}

// Remaining returns the unspent energy.
func (m *Meter) Remaining() int64 {
	return m.budget - m.used
}

// Used returns the energy spent so far.
func (m *Meter) Used() int64 {
	return m.used
}

// Budget returns the configured budget.
func (m *Meter) Budget() int64 {
	return m.budget
}

// ExhaustedError describes the step that could not be paid for.
//
// It is reported in Result.Exhaustion and never returned from Execute:
// running out of energy ends a run cleanly.
type ExhaustedError struct {
	PC        int
	Op        isa.OpCode
	Cost      int64
	Remaining int64
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("energy exhausted at pc %d: %s costs %d, %d remaining",
		e.PC, e.Op, e.Cost, e.Remaining)
}

// IsExhausted returns true if err wraps an *ExhaustedError.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}
