package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumsvm/vorax/internal/vm"
)

const runColumns = `id, program_hash, program, machine, engine_version, trace_version,
	status, reason, ticks, energy_used, violations, digest, error`

// ReadRun returns the run row for id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run in insertion order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid ASC`)
}

// ListRunsByProgram returns the runs of one program hash in insertion order.
func (s *Store) ListRunsByProgram(ctx context.Context, programHash string) ([]Run, error) {
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE program_hash = ? ORDER BY rowid ASC`, programHash)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var program, machine string
	err := sc.Scan(
		&run.ID,
		&run.ProgramHash,
		&program,
		&machine,
		&run.EngineVersion,
		&run.TraceVersion,
		&run.Status,
		&run.Reason,
		&run.Ticks,
		&run.EnergyUsed,
		&run.Violations,
		&run.Digest,
		&run.Error,
	)
	if err != nil {
		return Run{}, err
	}
	run.Program = []byte(program)
	run.Machine = []byte(machine)
	return run, nil
}

// ReadTrace returns a run's records ordered by tick.
// Returns an empty slice (not nil) if the run has no records.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]vm.TraceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record FROM trace_records
		WHERE run_id = ?
		ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	records := []vm.TraceRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan trace record: %w", err)
		}
		var rec vm.TraceRecord
		if err := rec.UnmarshalJSON([]byte(data)); err != nil {
			return nil, fmt.Errorf("decode trace record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return records, nil
}
