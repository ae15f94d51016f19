// Package compiler turns program documents into validated isa programs.
//
// A program document names the program, seeds containers and lists the
// instruction steps:
//
//	name: fuse_then_cycle
//	seeds: {A: 3, B: 4}
//	program:
//	  - {op: FUSE, args: [A, B]}
//	  - {op: CYCLE, args: [A, 3]}
//
// Documents are read from YAML, CUE or JSON. Zone and buffer operands may
// be given by name or by index; counts are always integers. The
// human-readable VORAX-L source language is not parsed here.
package compiler
