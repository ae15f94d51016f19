package isa

import "fmt"

// Instruction is a sealed interface over the opcode variants.
type Instruction interface {
	Op() OpCode
	String() string
	isInstruction()
}

// Fuse merges zone Src into zone Dst.
type Fuse struct{ Dst, Src int }

// Split spreads zone Zone over Parts consecutive zones starting at Zone.
type Split struct{ Zone, Parts int }

// Move transfers Amount units from zone Src to zone Dst.
type Move struct {
	Src, Dst int
	Amount   int64
}

// Cycle reduces zone Zone modulo Modulus.
type Cycle struct {
	Zone    int
	Modulus int64
}

// Store copies zone Zone into memory buffer Buffer and empties the zone.
type Store struct{ Buffer, Zone int }

// Retrieve loads memory buffer Buffer into zone Zone and empties the buffer.
type Retrieve struct{ Buffer, Zone int }

// Halt stops execution.
type Halt struct{}

// Compress fuses zones Zone+1 .. Zone+Width-1 into Zone.
// Cost zero means DefaultHigherOrderCost.
type Compress struct {
	Zone, Width int
	Cost        int64
}

// Expand redistributes zone Zone over Parts consecutive zones.
// Cost zero means DefaultHigherOrderCost.
type Expand struct {
	Zone, Parts int
	Cost        int64
}

func (Fuse) Op() OpCode     { return FUSE }
func (Split) Op() OpCode    { return SPLIT }
func (Move) Op() OpCode     { return MOVE }
func (Cycle) Op() OpCode    { return CYCLE }
func (Store) Op() OpCode    { return STORE }
func (Retrieve) Op() OpCode { return RETRIEVE }
func (Halt) Op() OpCode     { return HALT }
func (Compress) Op() OpCode { return COMPRESS }
func (Expand) Op() OpCode   { return EXPAND }

func (Fuse) isInstruction()     {}
func (Split) isInstruction()    {}
func (Move) isInstruction()     {}
func (Cycle) isInstruction()    {}
func (Store) isInstruction()    {}
func (Retrieve) isInstruction() {}
func (Halt) isInstruction()     {}
func (Compress) isInstruction() {}
func (Expand) isInstruction()   {}

func (i Fuse) String() string     { return fmt.Sprintf("FUSE %d %d", i.Dst, i.Src) }
func (i Split) String() string    { return fmt.Sprintf("SPLIT %d %d", i.Zone, i.Parts) }
func (i Move) String() string     { return fmt.Sprintf("MOVE %d %d %d", i.Src, i.Dst, i.Amount) }
func (i Cycle) String() string    { return fmt.Sprintf("CYCLE %d %d", i.Zone, i.Modulus) }
func (i Store) String() string    { return fmt.Sprintf("STORE %d %d", i.Buffer, i.Zone) }
func (i Retrieve) String() string { return fmt.Sprintf("RETRIEVE %d %d", i.Buffer, i.Zone) }
func (Halt) String() string       { return "HALT" }
func (i Compress) String() string {
	return fmt.Sprintf("COMPRESS %d %d %d", i.Zone, i.Width, EffectiveCost(i.Cost))
}
func (i Expand) String() string {
	return fmt.Sprintf("EXPAND %d %d %d", i.Zone, i.Parts, EffectiveCost(i.Cost))
}

// Operands returns the instruction's operands in encoding order.
func Operands(in Instruction) []int64 {
	switch i := in.(type) {
	case Fuse:
		return []int64{int64(i.Dst), int64(i.Src)}
	case Split:
		return []int64{int64(i.Zone), int64(i.Parts)}
	case Move:
		return []int64{int64(i.Src), int64(i.Dst), i.Amount}
	case Cycle:
		return []int64{int64(i.Zone), i.Modulus}
	case Store:
		return []int64{int64(i.Buffer), int64(i.Zone)}
	case Retrieve:
		return []int64{int64(i.Buffer), int64(i.Zone)}
	case Halt:
		return nil
	case Compress:
		return []int64{int64(i.Zone), int64(i.Width), EffectiveCost(i.Cost)}
	case Expand:
		return []int64{int64(i.Zone), int64(i.Parts), EffectiveCost(i.Cost)}
	default:
		panic(fmt.Sprintf("isa: unhandled instruction %T", in))
	}
}

// arity is the operand count each opcode takes when decoded. Compress and
// Expand accept one fewer, in which case the cost defaults.
var arity = map[OpCode]int{
	FUSE:     2,
	SPLIT:    2,
	MOVE:     3,
	CYCLE:    2,
	STORE:    2,
	RETRIEVE: 2,
	HALT:     0,
	COMPRESS: 3,
	EXPAND:   3,
}

// Decode builds an instruction from an opcode and raw operands.
// It checks arity only; layout checks happen in NewProgram.
func Decode(op OpCode, operands []int64) (Instruction, error) {
	want, ok := arity[op]
	if !ok {
		return nil, &UnknownOpcode{Op: op, Index: -1}
	}
	n := len(operands)
	optionalCost := op == COMPRESS || op == EXPAND
	if n != want && !(optionalCost && n == want-1) {
		return nil, &InvalidOperand{
			Op:      op,
			Index:   -1,
			Operand: "arity",
			Value:   int64(n),
			Reason:  fmt.Sprintf("expected %d operands", want),
		}
	}
	arg := func(i int) int64 {
		if i < n {
			return operands[i]
		}
		return 0
	}
	switch op {
	case FUSE:
		return Fuse{Dst: int(arg(0)), Src: int(arg(1))}, nil
	case SPLIT:
		return Split{Zone: int(arg(0)), Parts: int(arg(1))}, nil
	case MOVE:
		return Move{Src: int(arg(0)), Dst: int(arg(1)), Amount: arg(2)}, nil
	case CYCLE:
		return Cycle{Zone: int(arg(0)), Modulus: arg(1)}, nil
	case STORE:
		return Store{Buffer: int(arg(0)), Zone: int(arg(1))}, nil
	case RETRIEVE:
		return Retrieve{Buffer: int(arg(0)), Zone: int(arg(1))}, nil
	case COMPRESS:
		return Compress{Zone: int(arg(0)), Width: int(arg(1)), Cost: arg(2)}, nil
	case EXPAND:
		return Expand{Zone: int(arg(0)), Parts: int(arg(1)), Cost: arg(2)}, nil
	default:
		return Halt{}, nil
	}
}
