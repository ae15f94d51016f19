// Package isa defines the VM instruction set.
//
// Instructions are a closed set of variants behind the sealed Instruction
// interface, one struct per opcode carrying exactly its operands. A Program
// is validated against a Layout when it is built, so the engine never sees
// an operand that names a slot outside the machine.
package isa
