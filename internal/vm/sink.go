package vm

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// TraceSink receives every trace record as it is produced.
// An error from Append faults the run.
type TraceSink interface {
	Append(ctx context.Context, runID string, rec TraceRecord) error
}

// MemorySink keeps records in memory, grouped by run.
// Safe for concurrent use.
type MemorySink struct {
	mu   sync.Mutex
	runs map[string][]TraceRecord
	seq  []string
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{runs: make(map[string][]TraceRecord)}
}

// Append stores rec under runID.
func (s *MemorySink) Append(_ context.Context, runID string, rec TraceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		s.seq = append(s.seq, runID)
	}
	s.runs[runID] = append(s.runs[runID], rec)
	return nil
}

// Records returns a copy of the records stored for runID.
func (s *MemorySink) Records(runID string) []TraceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.runs[runID])
}

// Runs returns run ids in the order they were first seen.
func (s *MemorySink) Runs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.seq)
}

// LogSink writes each record as a structured log line. With a JSON
// handler this yields one JSON object per line.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink that logs at Info.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger, level: slog.LevelInfo}
}

// Append logs rec.
func (s *LogSink) Append(ctx context.Context, runID string, rec TraceRecord) error {
	s.logger.LogAttrs(ctx, s.level, "trace record",
		slog.String("event", "trace_record"),
		slog.String("run_id", runID),
		slog.Int64("tick", rec.Tick),
		slog.Int("pc", rec.PC),
		slog.String("op", rec.Op.String()),
		slog.String("instruction", rec.Instruction),
		slog.Int64("cost", rec.Cost),
		slog.Int64("energy", rec.Energy),
		slog.Any("zones", rec.After.Zones),
		slog.Any("buffers", rec.After.Buffers),
		slog.String("class", rec.Conservation.Class.String()),
		slog.Bool("held", rec.Conservation.Held),
	)
	return nil
}

// Fanout sends every record to each sink in order. All sinks are tried;
// their errors are joined.
func Fanout(sinks ...TraceSink) TraceSink {
	return fanout(slices.Clone(sinks))
}

type fanout []TraceSink

func (f fanout) Append(ctx context.Context, runID string, rec TraceRecord) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, runID, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
