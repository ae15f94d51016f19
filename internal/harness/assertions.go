package harness

import (
	"fmt"
	"strings"

	"github.com/lumsvm/vorax/internal/vm"
)

// AssertionError is returned when an assertion fails.
// It carries the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []vm.TraceRecord
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, rec := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %v\n", rec.Tick, rec.Instruction, rec.Before.Zones, rec.After.Zones)
		}
	}

	return buf.String()
}

// assertTraceContains checks that an instruction with the given op or
// rendering was executed.
func assertTraceContains(trace []vm.TraceRecord, a Assertion) error {
	for _, rec := range trace {
		if a.Op != "" && !strings.EqualFold(rec.Op.String(), a.Op) {
			continue
		}
		if a.Instruction != "" && rec.Instruction != a.Instruction {
			continue
		}
		return nil
	}

	want := a.Instruction
	if want == "" {
		want = a.Op
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: want,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that ops first appear in the given order.
// Intervening instructions are allowed.
func assertTraceOrder(trace []vm.TraceRecord, a Assertion) error {
	positions := make(map[string]int)
	for i, rec := range trace {
		for _, op := range a.Ops {
			if strings.EqualFold(rec.Op.String(), op) && positions[op] == 0 {
				positions[op] = i + 1
			}
		}
	}

	for _, op := range a.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", a.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the op was executed exactly Count times.
func assertTraceCount(trace []vm.TraceRecord, a Assertion) error {
	var count int64
	for _, rec := range trace {
		if strings.EqualFold(rec.Op.String(), a.Op) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks a container's count after the run.
func assertFinalState(final map[string]int64, a Assertion) error {
	got, ok := final[a.Container]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("container %s", a.Container),
			Actual:   "no such container",
		}
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %d", a.Container, a.Count),
			Actual:   fmt.Sprintf("%s = %d", a.Container, got),
		}
	}
	return nil
}

// assertConservation checks the law outcome recorded at a tick.
func assertConservation(trace []vm.TraceRecord, a Assertion) error {
	for _, rec := range trace {
		if rec.Tick != a.Tick {
			continue
		}
		if rec.Conservation.Held != *a.Held {
			return &AssertionError{
				Type:     AssertConservation,
				Expected: fmt.Sprintf("tick %d held=%t", a.Tick, *a.Held),
				Actual: fmt.Sprintf("held=%t (%s %d -> %d)", rec.Conservation.Held,
					rec.Conservation.Class, rec.Conservation.Before, rec.Conservation.After),
				Trace: trace,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertConservation,
		Expected: fmt.Sprintf("record at tick %d", a.Tick),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.Final, assertion)
		case AssertConservation:
			if assertion.Held == nil {
				err = fmt.Errorf("assertion[%d]: conservation requires held", i)
			} else {
				err = assertConservation(result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
