package isa

import (
	"errors"
	"fmt"
)

// InvalidOperand reports an operand that does not fit the machine layout
// or the opcode's constraints.
type InvalidOperand struct {
	Op      OpCode
	Index   int // position in the program, -1 when not known
	Operand string
	Value   int64
	Reason  string
}

func (e *InvalidOperand) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid operand %s=%d for %s at %d: %s", e.Operand, e.Value, e.Op, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid operand %s=%d for %s: %s", e.Operand, e.Value, e.Op, e.Reason)
}

// UnknownOpcode reports a byte that is not part of the instruction set.
type UnknownOpcode struct {
	Op    OpCode
	Index int
}

func (e *UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02x at %d", byte(e.Op), e.Index)
}

// IsInvalidOperand returns true if err wraps an *InvalidOperand.
func IsInvalidOperand(err error) bool {
	var ie *InvalidOperand
	return errors.As(err, &ie)
}

// IsUnknownOpcode returns true if err wraps an *UnknownOpcode.
func IsUnknownOpcode(err error) bool {
	var ue *UnknownOpcode
	return errors.As(err, &ue)
}
