package isa

import "fmt"

// OpCode is the byte value of an instruction.
type OpCode byte

const (
	RETRIEVE OpCode = 0x10
	STORE    OpCode = 0x11
	FUSE     OpCode = 0x20
	SPLIT    OpCode = 0x21
	CYCLE    OpCode = 0x22
	MOVE     OpCode = 0x23
	COMPRESS OpCode = 0x26
	EXPAND   OpCode = 0x27
	HALT     OpCode = 0xFF
)

var opCodeToString = map[OpCode]string{
	RETRIEVE: "RETRIEVE",
	STORE:    "STORE",
	FUSE:     "FUSE",
	SPLIT:    "SPLIT",
	CYCLE:    "CYCLE",
	MOVE:     "MOVE",
	COMPRESS: "COMPRESS",
	EXPAND:   "EXPAND",
	HALT:     "HALT",
}

var stringToOp = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opCodeToString))
	for op, name := range opCodeToString {
		m[name] = op
	}
	return m
}()

func (op OpCode) String() string {
	if s, ok := opCodeToString[op]; ok {
		return s
	}
	return fmt.Sprintf("opcode 0x%02x not defined", byte(op))
}

// Defined reports whether op is part of the instruction set.
func (op OpCode) Defined() bool {
	_, ok := opCodeToString[op]
	return ok
}

// StringToOp finds the opcode whose name is stored in str.
func StringToOp(str string) (OpCode, bool) {
	op, ok := stringToOp[str]
	return op, ok
}

// OpCodes returns every defined opcode in ascending byte order.
func OpCodes() []OpCode {
	return []OpCode{RETRIEVE, STORE, FUSE, SPLIT, CYCLE, MOVE, COMPRESS, EXPAND, HALT}
}
