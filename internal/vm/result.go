package vm

import (
	"fmt"

	"github.com/lumsvm/vorax/internal/conservation"
	"github.com/lumsvm/vorax/internal/ownership"
)

// Phase is the engine lifecycle position.
type Phase uint8

const (
	Idle Phase = iota
	Running
	Halted
	Faulted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("phase(%d)", p)
	}
}

// Status classifies a finished run.
type Status uint8

const (
	// Clean means every invariant held.
	Clean Status = iota + 1
	// Tolerated means the run finished with recorded conservation violations.
	Tolerated
	// FaultedRun means a fatal error stopped the run.
	FaultedRun
)

var statusNames = map[Status]string{
	Clean:      "clean",
	Tolerated:  "tolerated",
	FaultedRun: "faulted",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", s)
}

// ParseStatus maps a status name back to its value.
func ParseStatus(name string) (Status, bool) {
	for s, n := range statusNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// HaltReason says why a run stopped.
type HaltReason uint8

const (
	EndOfProgram HaltReason = iota + 1
	HaltInstruction
	BudgetExhausted
	Fault
)

var reasonNames = map[HaltReason]string{
	EndOfProgram:    "end_of_program",
	HaltInstruction: "halt_instruction",
	BudgetExhausted: "budget_exhausted",
	Fault:           "fault",
}

func (r HaltReason) String() string {
	if n, ok := reasonNames[r]; ok {
		return n
	}
	return fmt.Sprintf("reason(%d)", r)
}

// ParseHaltReason maps a reason name back to its value.
func ParseHaltReason(name string) (HaltReason, bool) {
	for r, n := range reasonNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// RunStats are the counters of the current or last run.
type RunStats struct {
	Steps        int
	Ticks        int64
	EnergyUsed   int64
	EnergyLeft   int64
	Conservation conservation.Stats
}

// Result is the outcome of Execute.
type Result struct {
	RunID  string
	Status Status
	Reason HaltReason

	Stats     RunStats
	State     Snapshot
	Ownership ownership.Stats
	Leaks     []ownership.Borrow

	// Exhaustion describes the refused step when Reason is BudgetExhausted.
	Exhaustion *ExhaustedError

	// Err is the fatal error when Status is FaultedRun.
	Err error
}
