// Package lum defines the resource unit model of the VM.
//
// A Resource is a group of binary presence units. Group-level operations
// (Fuse, Split, Take, Reduce) never create or destroy present units except
// Reduce, which applies the modulo class used by cycling instructions.
// Operations return an Outcome so callers handle the single and
// many-result cases explicitly.
//
// Identifiers are assigned by the caller. The helpers here only compute
// unit layouts.
package lum
