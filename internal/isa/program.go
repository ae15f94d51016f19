package isa

import (
	"fmt"
	"strings"
)

// Layout is the shape of the machine a program runs on.
type Layout struct {
	Zones   int
	Buffers int
}

// Program is a validated instruction stream.
// It is immutable once built.
type Program struct {
	layout       Layout
	instructions []Instruction
}

// NewProgram validates every instruction against layout and returns the
// program. The first malformed instruction is reported as *InvalidOperand.
func NewProgram(layout Layout, instrs ...Instruction) (*Program, error) {
	for idx, in := range instrs {
		if in == nil {
			return nil, &InvalidOperand{Op: HALT, Index: idx, Operand: "instruction", Reason: "nil instruction"}
		}
		if err := validate(layout, idx, in); err != nil {
			return nil, err
		}
	}
	cp := make([]Instruction, len(instrs))
	copy(cp, instrs)
	return &Program{layout: layout, instructions: cp}, nil
}

// MustProgram is like NewProgram but panics on error. For tests.
func MustProgram(layout Layout, instrs ...Instruction) *Program {
	p, err := NewProgram(layout, instrs...)
	if err != nil {
		panic(err)
	}
	return p
}

// Layout returns the layout the program was validated against.
func (p *Program) Layout() Layout { return p.layout }

// Len returns the number of instructions.
func (p *Program) Len() int { return len(p.instructions) }

// At returns the instruction at pc.
func (p *Program) At(pc int) Instruction { return p.instructions[pc] }

// Instructions returns a copy of the instruction stream.
func (p *Program) Instructions() []Instruction {
	cp := make([]Instruction, len(p.instructions))
	copy(cp, p.instructions)
	return cp
}

// String renders one instruction per line.
func (p *Program) String() string {
	var b strings.Builder
	for i, in := range p.instructions {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(in.String())
	}
	return b.String()
}

func validate(l Layout, idx int, in Instruction) error {
	bad := func(operand string, value int64, reason string) error {
		return &InvalidOperand{Op: in.Op(), Index: idx, Operand: operand, Value: value, Reason: reason}
	}
	zone := func(operand string, z int) error {
		if z < 0 || z >= l.Zones {
			return bad(operand, int64(z), fmt.Sprintf("zone out of range [0,%d)", l.Zones))
		}
		return nil
	}
	buffer := func(operand string, b int) error {
		if b < 0 || b >= l.Buffers {
			return bad(operand, int64(b), fmt.Sprintf("buffer out of range [0,%d)", l.Buffers))
		}
		return nil
	}
	span := func(operand string, start, n int) error {
		if n <= 0 {
			return bad(operand, int64(n), "must be positive")
		}
		if n > l.Zones-start {
			return bad(operand, int64(n), fmt.Sprintf("%d zones from %d exceed layout of %d", n, start, l.Zones))
		}
		return nil
	}
	cost := func(c int64) error {
		if c != 0 && c < DefaultHigherOrderCost {
			return bad("cost", c, fmt.Sprintf("must be at least %d", DefaultHigherOrderCost))
		}
		return nil
	}

	switch i := in.(type) {
	case Fuse:
		if err := zone("dst", i.Dst); err != nil {
			return err
		}
		if err := zone("src", i.Src); err != nil {
			return err
		}
		if i.Dst == i.Src {
			return bad("src", int64(i.Src), "must differ from dst")
		}
	case Split:
		if err := zone("zone", i.Zone); err != nil {
			return err
		}
		return span("parts", i.Zone, i.Parts)
	case Move:
		if err := zone("src", i.Src); err != nil {
			return err
		}
		if err := zone("dst", i.Dst); err != nil {
			return err
		}
		if i.Src == i.Dst {
			return bad("dst", int64(i.Dst), "must differ from src")
		}
		if i.Amount < 0 {
			return bad("amount", i.Amount, "must not be negative")
		}
	case Cycle:
		if err := zone("zone", i.Zone); err != nil {
			return err
		}
		if i.Modulus <= 0 {
			return bad("modulus", i.Modulus, "must be positive")
		}
	case Store:
		if err := buffer("buffer", i.Buffer); err != nil {
			return err
		}
		return zone("zone", i.Zone)
	case Retrieve:
		if err := buffer("buffer", i.Buffer); err != nil {
			return err
		}
		return zone("zone", i.Zone)
	case Halt:
	case Compress:
		if err := zone("zone", i.Zone); err != nil {
			return err
		}
		if err := span("width", i.Zone, i.Width); err != nil {
			return err
		}
		return cost(i.Cost)
	case Expand:
		if err := zone("zone", i.Zone); err != nil {
			return err
		}
		if err := span("parts", i.Zone, i.Parts); err != nil {
			return err
		}
		return cost(i.Cost)
	default:
		return &UnknownOpcode{Op: in.Op(), Index: idx}
	}
	return nil
}
