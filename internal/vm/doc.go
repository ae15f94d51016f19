// Package vm implements the execution engine.
//
// An Engine owns one machine: a fixed table of named zones and memory
// buffers, an energy meter, a logical clock, a linear ownership checker
// and a trace. Execute steps through an isa.Program one instruction at a
// time. Each step is charged, authorized by the checker, applied,
// checked for conservation and appended to the trace before the
// instruction pointer advances.
//
// Lifecycle: Idle -> Running -> Halted | Faulted. Reset returns the
// engine to Idle with a zeroed machine.
//
// Execution is single-threaded and synchronous. The energy budget bounds
// every run, so the context is only consulted between steps.
//
// Trace records carry logical ticks and no wall-clock data. Two runs of
// the same program from the same seeds produce byte-identical canonical
// traces.
package vm
