package isa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var layout = Layout{Zones: 4, Buffers: 2}

func TestOpCodeNames(t *testing.T) {
	for _, op := range OpCodes() {
		got, ok := StringToOp(op.String())
		require.True(t, ok, op.String())
		assert.Equal(t, op, got)
		assert.True(t, op.Defined())
	}

	assert.Equal(t, "opcode 0x42 not defined", OpCode(0x42).String())
	_, ok := StringToOp("JUMP")
	assert.False(t, ok)
}

func TestNewProgramValid(t *testing.T) {
	p, err := NewProgram(layout,
		Fuse{Dst: 0, Src: 1},
		Split{Zone: 0, Parts: 4},
		Move{Src: 0, Dst: 3, Amount: 1},
		Cycle{Zone: 2, Modulus: 3},
		Store{Buffer: 1, Zone: 0},
		Retrieve{Buffer: 1, Zone: 0},
		Compress{Zone: 0, Width: 4},
		Expand{Zone: 1, Parts: 3, Cost: 5},
		Halt{},
	)
	require.NoError(t, err)
	assert.Equal(t, 9, p.Len())
	assert.Equal(t, FUSE, p.At(0).Op())
	assert.Equal(t, layout, p.Layout())
	assert.Equal(t, "FUSE 0 1\nSPLIT 0 4\nMOVE 0 3 1\nCYCLE 2 3\nSTORE 1 0\nRETRIEVE 1 0\nCOMPRESS 0 4 3\nEXPAND 1 3 5\nHALT", p.String())
}

func TestNewProgramRejects(t *testing.T) {
	tests := []struct {
		name    string
		in      Instruction
		operand string
	}{
		{"fuse dst out of range", Fuse{Dst: 4, Src: 0}, "dst"},
		{"fuse same zone", Fuse{Dst: 1, Src: 1}, "src"},
		{"split zero parts", Split{Zone: 0, Parts: 0}, "parts"},
		{"split overflows layout", Split{Zone: 2, Parts: 3}, "parts"},
		{"move negative amount", Move{Src: 0, Dst: 1, Amount: -1}, "amount"},
		{"move same zone", Move{Src: 2, Dst: 2, Amount: 1}, "dst"},
		{"cycle zero modulus", Cycle{Zone: 0, Modulus: 0}, "modulus"},
		{"store bad buffer", Store{Buffer: 2, Zone: 0}, "buffer"},
		{"retrieve bad zone", Retrieve{Buffer: 0, Zone: -1}, "zone"},
		{"compress cheap", Compress{Zone: 0, Width: 2, Cost: 2}, "cost"},
		{"expand too wide", Expand{Zone: 3, Parts: 2}, "parts"},
		{"split max parts", Split{Zone: 1, Parts: math.MaxInt}, "parts"},
		{"expand max parts", Expand{Zone: 0, Parts: math.MaxInt}, "parts"},
		{"compress max width", Compress{Zone: 1, Width: math.MaxInt}, "width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProgram(layout, Halt{}, tt.in)
			require.Error(t, err)
			assert.True(t, IsInvalidOperand(err))

			var ie *InvalidOperand
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.operand, ie.Operand)
			assert.Equal(t, 1, ie.Index)
			assert.Equal(t, tt.in.Op(), ie.Op)
		})
	}
}

func TestProgramIsCopied(t *testing.T) {
	instrs := []Instruction{Fuse{Dst: 0, Src: 1}}
	p := MustProgram(layout, instrs...)
	instrs[0] = Halt{}
	assert.Equal(t, FUSE, p.At(0).Op())

	out := p.Instructions()
	out[0] = Halt{}
	assert.Equal(t, FUSE, p.At(0).Op())
}

func TestDecode(t *testing.T) {
	in, err := Decode(MOVE, []int64{0, 2, 5})
	require.NoError(t, err)
	assert.Equal(t, Move{Src: 0, Dst: 2, Amount: 5}, in)
	assert.Equal(t, []int64{0, 2, 5}, Operands(in))

	in, err = Decode(COMPRESS, []int64{0, 3})
	require.NoError(t, err)
	assert.Equal(t, Compress{Zone: 0, Width: 3}, in)
	assert.Equal(t, []int64{0, 3, 3}, Operands(in))

	in, err = Decode(HALT, nil)
	require.NoError(t, err)
	assert.Equal(t, Halt{}, in)

	_, err = Decode(FUSE, []int64{1})
	assert.True(t, IsInvalidOperand(err))

	_, err = Decode(OpCode(0x42), nil)
	assert.True(t, IsUnknownOpcode(err))
	assert.False(t, IsInvalidOperand(err))
}

func TestCosts(t *testing.T) {
	c := DefaultCosts()
	assert.Equal(t, int64(1), c.Cost(Fuse{}))
	assert.Equal(t, int64(1), c.Cost(Cycle{}))
	assert.Equal(t, int64(2), c.Cost(Store{}))
	assert.Equal(t, int64(2), c.Cost(Retrieve{}))
	assert.Equal(t, int64(3), c.Cost(Compress{}))
	assert.Equal(t, int64(7), c.Cost(Expand{Cost: 7}))
	assert.Equal(t, int64(0), c.Cost(Halt{}))

	c.HigherOrder = 5
	assert.Equal(t, int64(5), c.Cost(Compress{Cost: 4}), "configured floor wins")
}
