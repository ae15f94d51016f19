package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumsvm/vorax/internal/isa"
	"github.com/lumsvm/vorax/internal/testutil"
	"github.com/lumsvm/vorax/internal/vm"
)

func TestBeginAndReadRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:            "run-1",
		ProgramHash:   "abc",
		Program:       []byte(`{"name":"p"}`),
		Machine:       []byte(`{"budget":1000}`),
		EngineVersion: "0.1.0",
		TraceVersion:  "1",
	}
	require.NoError(t, s.BeginRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ProgramHash)
	assert.Equal(t, `{"name":"p"}`, string(got.Program))
	assert.Equal(t, `{"budget":1000}`, string(got.Machine))
	assert.Equal(t, "running", got.Status)

	// A second begin does not overwrite a written row.
	run.ProgramHash = "other"
	require.NoError(t, s.BeginRun(ctx, run))
	got, err = s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ProgramHash)
}

func TestReadRunNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestAppendIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "run-1", createTestRecord(1)))
	require.NoError(t, s.Append(ctx, "run-1", createTestRecord(1)))
	require.NoError(t, s.Append(ctx, "run-1", createTestRecord(2)))

	records, err := s.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAppendCreatesPlaceholderRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "run-1", createTestRecord(1)))
	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "", got.ProgramHash)

	// BeginRun fills in the placeholder.
	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", ProgramHash: "abc", Program: []byte(`{}`)}))
	got, err = s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ProgramHash)
}

func TestReadTraceOrderedByTick(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, tick := range []int64{3, 1, 2} {
		require.NoError(t, s.Append(ctx, "run-1", createTestRecord(tick)))
	}

	records, err := s.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Tick)
	}
	assert.Equal(t, createTestRecord(2), records[1])

	empty, err := s.ReadTrace(ctx, "none")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", ProgramHash: "abc"}))
	require.NoError(t, s.FinishRun(ctx, "run-1", Outcome{
		Status:     "tolerated",
		Reason:     "end_of_program",
		Ticks:      4,
		EnergyUsed: 5,
		Violations: 1,
		Digest:     "d1",
	}))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "tolerated", got.Status)
	assert.Equal(t, "end_of_program", got.Reason)
	assert.Equal(t, int64(4), got.Ticks)
	assert.Equal(t, int64(5), got.EnergyUsed)
	assert.Equal(t, 1, got.Violations)
	assert.Equal(t, "d1", got.Digest)

	err = s.FinishRun(ctx, "missing", Outcome{})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	require.NoError(t, s.BeginRun(ctx, Run{ID: "b", ProgramHash: "h1"}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "a", ProgramHash: "h2"}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "c", ProgramHash: "h1"}))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids, "insertion order")

	byProgram, err := s.ListRunsByProgram(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, byProgram, 2)
	assert.Equal(t, "b", byProgram[0].ID)
	assert.Equal(t, "c", byProgram[1].ID)
}

func TestStoreAsEngineSink(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e, err := vm.New(
		vm.WithSink(s),
		vm.WithRunIDGenerator(testutil.NewFixedRunGenerator("run-sink")),
		vm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	require.NoError(t, e.Seed("A", 3))
	require.NoError(t, e.Seed("B", 4))

	prog := isa.MustProgram(e.Layout(), isa.Fuse{Dst: 0, Src: 1}, isa.Cycle{Zone: 0, Modulus: 3})
	res, err := e.Execute(ctx, prog)
	require.NoError(t, err)

	digest, err := vm.Digest(e.Trace())
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, res.RunID, OutcomeFromResult(res, digest)))

	stored, err := s.ReadTrace(ctx, "run-sink")
	require.NoError(t, err)
	assert.Equal(t, e.Trace(), stored)

	storedDigest, err := vm.Digest(stored)
	require.NoError(t, err)
	assert.Equal(t, digest, storedDigest, "stored trace encodes to identical bytes")

	run, err := s.ReadRun(ctx, "run-sink")
	require.NoError(t, err)
	assert.Equal(t, "clean", run.Status)
	assert.Equal(t, int64(2), run.Ticks)
}
