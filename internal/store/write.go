package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumsvm/vorax/internal/vm"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("store: run not found")

var _ vm.TraceSink = (*Store)(nil)

// Run is one row of the runs table.
type Run struct {
	ID            string
	ProgramHash   string
	Program       []byte // canonical JSON of the program document
	Machine       []byte // canonical JSON of the machine configuration
	EngineVersion string
	TraceVersion  string
	Status        string
	Reason        string
	Ticks         int64
	EnergyUsed    int64
	Violations    int
	Digest        string
	Error         string
}

// Outcome is what FinishRun records.
type Outcome struct {
	Status     string
	Reason     string
	Ticks      int64
	EnergyUsed int64
	Violations int
	Digest     string
	Error      string
}

// OutcomeFromResult converts an engine result and trace digest.
func OutcomeFromResult(res vm.Result, digest string) Outcome {
	o := Outcome{
		Status:     res.Status.String(),
		Reason:     res.Reason.String(),
		Ticks:      res.Stats.Ticks,
		EnergyUsed: res.Stats.EnergyUsed,
		Violations: res.Stats.Conservation.Violations,
		Digest:     digest,
	}
	if res.Err != nil {
		o.Error = res.Err.Error()
	}
	return o
}

// BeginRun inserts the run row before any record is appended.
//
// If Append already created a placeholder row for the id, the program
// and machine columns are filled in. A fully written row is left alone.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	program := string(run.Program)
	if program == "" {
		program = "{}"
	}
	machine := string(run.Machine)
	if machine == "" {
		machine = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, program_hash, program, machine, engine_version, trace_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			program_hash = excluded.program_hash,
			program = excluded.program,
			machine = excluded.machine,
			engine_version = excluded.engine_version,
			trace_version = excluded.trace_version
		WHERE runs.program_hash = ''
	`,
		run.ID,
		run.ProgramHash,
		program,
		machine,
		run.EngineVersion,
		run.TraceVersion,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// Append stores one trace record. It implements vm.TraceSink.
//
// Uses ON CONFLICT DO NOTHING keyed on (run_id, tick): writing the same
// tick twice is silently ignored. A run row is created if missing.
func (s *Store) Append(ctx context.Context, runID string, rec vm.TraceRecord) error {
	data, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("append trace record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append trace record: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, runID); err != nil {
		return fmt.Errorf("append trace record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trace_records (run_id, tick, op, record)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, tick) DO NOTHING
	`, runID, rec.Tick, rec.Op.String(), string(data)); err != nil {
		return fmt.Errorf("append trace record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append trace record: %w", err)
	}
	return nil
}

// FinishRun records a run's outcome.
// Returns ErrRunNotFound if the run was never begun or appended to.
func (s *Store) FinishRun(ctx context.Context, runID string, o Outcome) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, reason = ?, ticks = ?, energy_used = ?,
			violations = ?, digest = ?, error = ?
		WHERE id = ?
	`,
		o.Status,
		o.Reason,
		o.Ticks,
		o.EnergyUsed,
		o.Violations,
		o.Digest,
		o.Error,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
