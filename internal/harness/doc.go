// Package harness runs conformance scenarios against the VORAX engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: fuse_then_cycle
//	description: "Fusing two zones conserves units; CYCLE is exempt"
//	machine:            # optional overrides of the default machine
//	  zones: [A, B, C, D]
//	  budget: 1000
//	seeds:
//	  A: 3
//	  B: 4
//	borrows:            # optional, applied after seeding
//	  - container: C
//	    borrower: audit
//	program:
//	  - op: FUSE
//	    args: [A, B]
//	  - op: CYCLE
//	    args: [A, 3]
//	expect:
//	  status: clean
//	  reason: end_of_program
//	  zones: { A: 1, B: 0 }
//	  violations: 0
//	assertions:
//	  - type: trace_count
//	    op: FUSE
//	    count: 1
//
// # Expectations
//
// expect checks the run outcome: status (clean, tolerated, faulted),
// halt reason, final container counts (subset match), the number of
// conservation violations, remaining energy, and the kind of fatal error
// (see ErrorKind).
//
// # Assertion Types
//
//   - trace_contains: an instruction appears in the trace
//   - trace_order: ops appear in the given order
//   - trace_count: an op appears exactly N times
//   - final_state: a container holds exactly N units
//   - conservation: the record at a tick held (or broke) its law
//
// # Deterministic Testing
//
// Every scenario runs on a fresh engine with a fixed run id and an
// in-memory trace sink, so identical scenarios produce byte-identical
// canonical traces. RunWithGolden compares them against
// testdata/golden/{name}.golden.
package harness
