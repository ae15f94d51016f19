package compiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lumsvm/vorax/internal/isa"
	"github.com/lumsvm/vorax/internal/lum"
)

// Machine names the containers operands are resolved against.
type Machine struct {
	Zones   []string
	Buffers []string
}

// Layout returns the isa layout of the machine.
func (m Machine) Layout() isa.Layout {
	return isa.Layout{Zones: len(m.Zones), Buffers: len(m.Buffers)}
}

// Seed is an initial container load.
type Seed struct {
	Container string
	Count     int64
}

// Compiled is a document ready to execute.
type Compiled struct {
	Name    string
	Program *isa.Program
	Seeds   []Seed // zones first, then buffers, in layout order
	Hash    string
}

type operandKind uint8

const (
	zoneOperand operandKind = iota
	bufferOperand
	countOperand
)

func (k operandKind) String() string {
	switch k {
	case zoneOperand:
		return "zone"
	case bufferOperand:
		return "buffer"
	default:
		return "count"
	}
}

// signatures lists operand kinds per opcode. COMPRESS and EXPAND take an
// optional trailing cost.
var signatures = map[isa.OpCode][]operandKind{
	isa.FUSE:     {zoneOperand, zoneOperand},
	isa.SPLIT:    {zoneOperand, countOperand},
	isa.MOVE:     {zoneOperand, zoneOperand, countOperand},
	isa.CYCLE:    {zoneOperand, countOperand},
	isa.STORE:    {bufferOperand, zoneOperand},
	isa.RETRIEVE: {bufferOperand, zoneOperand},
	isa.HALT:     {},
	isa.COMPRESS: {zoneOperand, countOperand, countOperand},
	isa.EXPAND:   {zoneOperand, countOperand, countOperand},
}

// Compile resolves operands against m and validates the program.
func Compile(doc *Document, m Machine) (*Compiled, error) {
	instrs := make([]isa.Instruction, 0, len(doc.Program))
	for i, step := range doc.Program {
		in, err := compileStep(i, step, m)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, in)
	}

	prog, err := isa.NewProgram(m.Layout(), instrs...)
	if err != nil {
		step := -1
		var ie *isa.InvalidOperand
		if errors.As(err, &ie) {
			step = ie.Index
		}
		return nil, &CompileError{Step: step, Field: "args", Message: err.Error(), Err: err}
	}

	seeds, err := resolveSeeds(doc.Seeds, m)
	if err != nil {
		return nil, err
	}

	hash, err := doc.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash program: %w", err)
	}

	return &Compiled{Name: doc.Name, Program: prog, Seeds: seeds, Hash: hash}, nil
}

func compileStep(i int, step Step, m Machine) (isa.Instruction, error) {
	op, ok := isa.StringToOp(strings.ToUpper(step.Op))
	if !ok {
		return nil, &CompileError{
			Step:    i,
			Field:   "op",
			Message: fmt.Sprintf("unknown opcode %q", step.Op),
			Err:     &isa.UnknownOpcode{Index: i},
		}
	}

	sig := signatures[op]
	optional := op == isa.COMPRESS || op == isa.EXPAND
	if len(step.Args) != len(sig) && !(optional && len(step.Args) == len(sig)-1) {
		return nil, &CompileError{
			Step:    i,
			Field:   "args",
			Message: fmt.Sprintf("%s takes %d operands, got %d", op, len(sig), len(step.Args)),
		}
	}

	operands := make([]int64, len(step.Args))
	for j, arg := range step.Args {
		n, err := resolve(arg, sig[j], m)
		if err != nil {
			return nil, &CompileError{Step: i, Field: fmt.Sprintf("args[%d]", j), Message: err.Error()}
		}
		operands[j] = n
	}

	in, err := isa.Decode(op, operands)
	if err != nil {
		return nil, &CompileError{Step: i, Field: "args", Message: err.Error(), Err: err}
	}
	return in, nil
}

func resolve(arg Arg, kind operandKind, m Machine) (int64, error) {
	if !arg.IsName {
		return arg.Num, nil
	}
	var names []string
	switch kind {
	case zoneOperand:
		names = m.Zones
	case bufferOperand:
		names = m.Buffers
	default:
		return 0, fmt.Errorf("%s operand must be an integer, got %q", kind, arg.Name)
	}
	idx := slices.Index(names, arg.Name)
	if idx < 0 {
		return 0, fmt.Errorf("unknown %s %q", kind, arg.Name)
	}
	return int64(idx), nil
}

func resolveSeeds(seeds map[string]int64, m Machine) ([]Seed, error) {
	for name, n := range seeds {
		if !slices.Contains(m.Zones, name) && !slices.Contains(m.Buffers, name) {
			return nil, &CompileError{Step: -1, Field: "seeds", Message: fmt.Sprintf("unknown container %q", name)}
		}
		if n < 0 {
			return nil, &CompileError{Step: -1, Field: "seeds", Message: fmt.Sprintf("count for %s must not be negative", name)}
		}
		if err := lum.CheckCount(name, n); err != nil {
			return nil, &CompileError{Step: -1, Field: "seeds", Message: err.Error(), Err: err}
		}
	}
	var out []Seed
	for _, name := range slices.Concat(m.Zones, m.Buffers) {
		if n, ok := seeds[name]; ok && n > 0 {
			out = append(out, Seed{Container: name, Count: n})
		}
	}
	return out, nil
}
