// Package store provides SQLite-backed persistence for runs and traces.
//
// Two tables:
//   - runs: one row per execution with the program document, machine
//     configuration, outcome and trace digest
//   - trace_records: the canonical JSON of each trace record
//
// # Ordering
//
// Traces are read ORDER BY tick ASC and runs ORDER BY rowid ASC, never by
// wall-clock time. A trace read back encodes to the same bytes it was
// written from.
//
// # Idempotency
//
// Appends are keyed by UNIQUE(run_id, tick) and use ON CONFLICT DO
// NOTHING, so replaying a sink into the same run is a no-op.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Store satisfies vm.TraceSink.
package store
