package vm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumsvm/vorax/internal/conservation"
	"github.com/lumsvm/vorax/internal/isa"
	"github.com/lumsvm/vorax/internal/lum"
	"github.com/lumsvm/vorax/internal/ownership"
	"github.com/lumsvm/vorax/internal/testutil"
)

var defaultLayout = isa.Layout{Zones: 4, Buffers: 2}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRunIDGenerator(testutil.NewFixedRunGenerator("run-test")),
	}
	e, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func seed(t *testing.T, e *Engine, counts map[string]int64) {
	t.Helper()
	for name, n := range counts {
		require.NoError(t, e.Seed(name, n))
	}
}

func program(instrs ...isa.Instruction) *isa.Program {
	return isa.MustProgram(defaultLayout, instrs...)
}

func TestFuseThenCycle(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 3, "B": 4})

	res, err := e.Execute(context.Background(), program(
		isa.Fuse{Dst: 0, Src: 1},
		isa.Cycle{Zone: 0, Modulus: 3},
	))
	require.NoError(t, err)

	assert.Equal(t, Clean, res.Status)
	assert.Equal(t, EndOfProgram, res.Reason)
	assert.Equal(t, "run-test", res.RunID)
	assert.Equal(t, []int64{1, 0, 0, 0}, res.State.Zones)
	assert.Equal(t, []int64{0, 0}, res.State.Buffers)
	assert.Equal(t, Halted, e.Status())

	trace := e.Trace()
	require.Len(t, trace, 2)

	assert.Equal(t, int64(1), trace[0].Tick)
	assert.Equal(t, "FUSE 0 1", trace[0].Instruction)
	assert.Equal(t, []int64{3, 4, 0, 0}, trace[0].Before.Zones)
	assert.Equal(t, []int64{7, 0, 0, 0}, trace[0].After.Zones)
	assert.Equal(t, conservation.Check{Class: conservation.Conserve, Before: 7, After: 7, Held: true}, trace[0].Conservation)
	assert.Equal(t, int64(999), trace[0].Energy)

	assert.Equal(t, int64(2), trace[1].Tick)
	assert.Equal(t, conservation.Check{Class: conservation.Modulo, Before: 7, After: 1, Modulus: 3, Held: true}, trace[1].Conservation)
	assert.Equal(t, int64(998), trace[1].Energy)

	assert.Equal(t, RunStats{
		Steps:        2,
		Ticks:        2,
		EnergyUsed:   2,
		EnergyLeft:   998,
		Conservation: conservation.Stats{Operations: 2},
	}, res.Stats)

	// Seeds A#1, B#1 fused into A#2, cycled into A#3.
	assert.Equal(t, ownership.Stats{Total: 4, Owned: 1, Consumed: 3, Tick: 2}, res.Ownership)
	rec, ok := e.checker.Record("zone:A#3")
	require.True(t, ok)
	assert.Equal(t, ownership.Owned, rec.State)
	assert.Equal(t, []string{"zone:A", "zone:B"}, rec.Capabilities)
}

func TestSplitTieBreak(t *testing.T) {
	tests := []struct {
		name  string
		count int64
		parts int
		want  []int64
	}{
		{"five over two", 5, 2, []int64{3, 2, 0, 0}},
		{"six over three", 6, 3, []int64{2, 2, 2, 0}},
		{"seven over four", 7, 4, []int64{2, 2, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			seed(t, e, map[string]int64{"A": tt.count})

			res, err := e.Execute(context.Background(), program(isa.Split{Zone: 0, Parts: tt.parts}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.State.Zones)
			assert.Equal(t, Clean, res.Status)
		})
	}
}

func TestSplitAddsToExistingTargets(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 4, "B": 1})

	res, err := e.Execute(context.Background(), program(isa.Split{Zone: 0, Parts: 2}))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 0, 0}, res.State.Zones)
	assert.True(t, e.Trace()[0].Conservation.Held)
}

func TestEnergyHalt(t *testing.T) {
	e := newEngine(t, WithBudget(2))
	seed(t, e, map[string]int64{"A": 1})

	res, err := e.Execute(context.Background(), program(
		isa.Move{Src: 0, Dst: 1, Amount: 1},
		isa.Move{Src: 1, Dst: 2, Amount: 1},
		isa.Move{Src: 2, Dst: 3, Amount: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, BudgetExhausted, res.Reason)
	assert.Equal(t, Clean, res.Status)
	assert.Len(t, e.Trace(), 2)
	assert.Equal(t, []int64{0, 0, 1, 0}, res.State.Zones)
	assert.Equal(t, int64(0), res.Stats.EnergyLeft)

	require.NotNil(t, res.Exhaustion)
	assert.Equal(t, 2, res.Exhaustion.PC)
	assert.Equal(t, isa.MOVE, res.Exhaustion.Op)
	assert.True(t, IsExhausted(res.Exhaustion))
}

func TestStepCostingMoreThanRemainingIsRefused(t *testing.T) {
	e := newEngine(t, WithBudget(2))
	seed(t, e, map[string]int64{"A": 2})

	res, err := e.Execute(context.Background(), program(
		isa.Fuse{Dst: 1, Src: 0},
		isa.Store{Buffer: 0, Zone: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, BudgetExhausted, res.Reason)
	assert.Equal(t, int64(2), res.Exhaustion.Cost)
	assert.Equal(t, int64(1), res.Exhaustion.Remaining)
	assert.Equal(t, []int64{0, 2, 0, 0}, res.State.Zones)
}

func TestHaltInstruction(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 1, "B": 1})

	res, err := e.Execute(context.Background(), program(
		isa.Fuse{Dst: 0, Src: 1},
		isa.Halt{},
		isa.Move{Src: 0, Dst: 1, Amount: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, HaltInstruction, res.Reason)

	trace := e.Trace()
	require.Len(t, trace, 2)
	assert.Equal(t, isa.HALT, trace[1].Op)
	assert.Equal(t, int64(0), trace[1].Cost)
	assert.Equal(t, conservation.None, trace[1].Conservation.Class)
	assert.Equal(t, []int64{2, 0, 0, 0}, res.State.Zones)
	assert.Equal(t, conservation.Stats{Operations: 2, Exempt: 1}, res.Stats.Conservation)
}

func TestHaltAfterBudgetSpentIsRefused(t *testing.T) {
	e := newEngine(t, WithBudget(1))
	seed(t, e, map[string]int64{"A": 1})

	res, err := e.Execute(context.Background(), program(
		isa.Move{Src: 0, Dst: 1, Amount: 1},
		isa.Halt{},
	))
	require.NoError(t, err)
	assert.Equal(t, BudgetExhausted, res.Reason)
	assert.Len(t, e.Trace(), 1)
	require.NotNil(t, res.Exhaustion)
	assert.Equal(t, isa.HALT, res.Exhaustion.Op)
	assert.Equal(t, int64(0), res.Exhaustion.Remaining)
}

func TestMoveMoreThanHeldFaults(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 2})

	res, err := e.Execute(context.Background(), program(
		isa.Move{Src: 0, Dst: 1, Amount: 1},
		isa.Move{Src: 0, Dst: 1, Amount: 5},
	))
	require.Error(t, err)
	assert.True(t, isa.IsInvalidOperand(err))

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.PC)
	assert.Equal(t, int64(2), re.Tick)
	assert.Equal(t, isa.MOVE, re.Op)

	assert.Equal(t, FaultedRun, res.Status)
	assert.Equal(t, Fault, res.Reason)
	assert.Equal(t, []int64{1, 1, 0, 0}, res.State.Zones, "last valid state")
	assert.Len(t, e.Trace(), 1)
	assert.Equal(t, int64(1), res.Stats.EnergyUsed, "faulted step is not charged")
	assert.Equal(t, Faulted, e.Status())
}

func TestStoreAndRetrieve(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 3})

	res, err := e.Execute(context.Background(), program(
		isa.Store{Buffer: 1, Zone: 0},
		isa.Retrieve{Buffer: 1, Zone: 2},
	))
	require.NoError(t, err)
	assert.Equal(t, Clean, res.Status)
	assert.Equal(t, []int64{0, 0, 3, 0}, res.State.Zones)
	assert.Equal(t, []int64{0, 0}, res.State.Buffers)

	trace := e.Trace()
	assert.Equal(t, []int64{0, 3}, trace[0].After.Buffers)
	assert.Equal(t, int64(2), trace[0].Cost)
	assert.Equal(t, int64(996), res.Stats.EnergyLeft)
}

func TestStoreOverwriteIsTolerated(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 3, "buf": 2})

	res, err := e.Execute(context.Background(), program(isa.Store{Buffer: 0, Zone: 0}))
	require.NoError(t, err)

	assert.Equal(t, Tolerated, res.Status)
	assert.Equal(t, EndOfProgram, res.Reason)
	assert.Equal(t, []int64{3, 0}, res.State.Buffers)
	assert.Equal(t, 1, res.Stats.Conservation.Violations)

	check := e.Trace()[0].Conservation
	assert.False(t, check.Held)
	assert.Equal(t, int64(5), check.Before)
	assert.Equal(t, int64(3), check.After)
}

func TestCompressAndExpand(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 1, "B": 2, "C": 3, "D": 4})

	res, err := e.Execute(context.Background(), program(
		isa.Compress{Zone: 0, Width: 4},
		isa.Expand{Zone: 0, Parts: 3, Cost: 5},
	))
	require.NoError(t, err)
	assert.Equal(t, Clean, res.Status)
	assert.Equal(t, []int64{4, 3, 3, 0}, res.State.Zones)

	trace := e.Trace()
	assert.Equal(t, []int64{10, 0, 0, 0}, trace[0].After.Zones)
	assert.Equal(t, int64(3), trace[0].Cost)
	assert.Equal(t, int64(5), trace[1].Cost)
	assert.Equal(t, int64(8), res.Stats.EnergyUsed)
}

func TestCycleToZeroConsumes(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"B": 6})

	res, err := e.Execute(context.Background(), program(isa.Cycle{Zone: 1, Modulus: 3}))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0, 0}, res.State.Zones)
	assert.Equal(t, ownership.Stats{Total: 1, Consumed: 1, Tick: 1}, res.Ownership)
	assert.True(t, e.Trace()[0].Conservation.Held)
}

func TestConservationHoldsAcrossProgram(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 9, "B": 2})

	_, err := e.Execute(context.Background(), program(
		isa.Split{Zone: 0, Parts: 4},
		isa.Fuse{Dst: 3, Src: 1},
		isa.Move{Src: 3, Dst: 0, Amount: 2},
		isa.Store{Buffer: 0, Zone: 2},
		isa.Retrieve{Buffer: 0, Zone: 1},
		isa.Compress{Zone: 0, Width: 2},
		isa.Expand{Zone: 1, Parts: 3},
	))
	require.NoError(t, err)

	for _, rec := range e.Trace() {
		require.Equal(t, conservation.Conserve, rec.Conservation.Class)
		assert.True(t, rec.Conservation.Held, rec.Instruction)
		assert.Equal(t, rec.Before.Total(), rec.After.Total(), rec.Instruction)
	}
	assert.Equal(t, int64(11), e.State().Total())
}

func TestLinearSafetyAfterRun(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 5, "C": 1})

	_, err := e.Execute(context.Background(), program(
		isa.Split{Zone: 0, Parts: 3},
		isa.Fuse{Dst: 3, Src: 2},
	))
	require.NoError(t, err)

	// Every live container holds exactly one Owned record; everything
	// else is Consumed.
	live := 0
	for _, c := range append(e.machine.zones, e.machine.buffers...) {
		if !c.live() {
			continue
		}
		live++
		rec, ok := e.checker.Record(c.res.ID)
		require.True(t, ok, c.name)
		assert.Equal(t, ownership.Owned, rec.State, c.name)
	}
	stats := e.Ownership()
	assert.Equal(t, live, stats.Owned)
	assert.Equal(t, stats.Total-live, stats.Consumed)
}

func TestBorrowedContainerFaults(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 2, "B": 1})
	require.NoError(t, e.Borrow("A", "inspector"))

	res, err := e.Execute(context.Background(), program(isa.Fuse{Dst: 1, Src: 0}))
	require.Error(t, err)
	reason, ok := ownership.ViolationReason(err)
	require.True(t, ok)
	assert.Equal(t, ownership.ReasonBorrowed, reason)
	assert.Equal(t, []int64{2, 1, 0, 0}, res.State.Zones)
	require.Len(t, res.Leaks, 1)
	assert.Equal(t, "inspector", res.Leaks[0].Borrower)

	require.NoError(t, e.Return("A"))
	assert.Empty(t, e.Leaks())
	assert.True(t, ownership.IsNoActiveBorrow(e.Return("A")))
}

func TestBorrowEmptyContainer(t *testing.T) {
	e := newEngine(t)
	assert.True(t, ownership.IsLinearViolation(e.Borrow("A", "x")))
	assert.ErrorIs(t, e.Borrow("Z", "x"), ErrUnknownContainer)
}

func TestSeedErrors(t *testing.T) {
	e := newEngine(t)
	assert.ErrorIs(t, e.Seed("Q", 1), ErrUnknownContainer)
	assert.Error(t, e.Seed("A", -1))

	require.NoError(t, e.Seed("A", 2))
	assert.Error(t, e.Seed("A", 1), "container already holds units")
	require.NoError(t, e.Seed("B", 0))
	assert.Equal(t, []int64{2, 0, 0, 0}, e.State().Zones)

	_, err := e.Execute(context.Background(), program())
	require.NoError(t, err)
	assert.ErrorIs(t, e.Seed("C", 1), ErrNotIdle)
}

func TestSeedRejectsOversizedCount(t *testing.T) {
	e := newEngine(t)
	err := e.Seed("A", 1<<62)
	var ce *lum.CountOverflowError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(1<<62), ce.Count)
	assert.Equal(t, []int64{0, 0, 0, 0}, e.State().Zones)

	require.NoError(t, e.Seed("A", lum.MaxCount))
}

func TestFuseBeyondMaxCountFaults(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": lum.MaxCount, "B": 1})

	res, err := e.Execute(context.Background(), program(
		isa.Fuse{Dst: 0, Src: 1},
	))
	require.Error(t, err)
	assert.True(t, lum.IsCountOverflow(err))
	assert.True(t, IsRunError(err))

	assert.Equal(t, FaultedRun, res.Status)
	assert.Equal(t, []int64{lum.MaxCount, 1, 0, 0}, res.State.Zones)
	assert.Empty(t, e.Trace())
}

func TestMoveBeyondMaxCountFaults(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 2, "B": lum.MaxCount})

	_, err := e.Execute(context.Background(), program(
		isa.Move{Src: 0, Dst: 1, Amount: 1},
	))
	assert.True(t, lum.IsCountOverflow(err))
	assert.Equal(t, []int64{2, lum.MaxCount, 0, 0}, e.State().Zones)
}

func TestReset(t *testing.T) {
	e := newEngine(t)
	seed(t, e, map[string]int64{"A": 3, "B": 4})
	_, err := e.Execute(context.Background(), program(isa.Fuse{Dst: 0, Src: 1}))
	require.NoError(t, err)

	require.NoError(t, e.Reset())
	assert.Equal(t, Idle, e.Status())
	assert.Equal(t, int64(0), e.State().Total())
	assert.Empty(t, e.Trace())
	assert.Equal(t, ownership.Stats{}, e.Ownership())
	assert.Equal(t, RunStats{EnergyLeft: DefaultBudget}, e.Stats())

	// Ids restart after a reset.
	require.NoError(t, e.Seed("A", 1))
	_, ok := e.checker.Record("zone:A#1")
	assert.True(t, ok)
}

func TestLayoutMismatch(t *testing.T) {
	e := newEngine(t, WithZones("X", "Y"), WithBuffers())
	_, err := e.Execute(context.Background(), program(isa.Halt{}))
	assert.ErrorIs(t, err, ErrLayoutMismatch)
	assert.Equal(t, Idle, e.Status())
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	_, err := New(WithZones())
	assert.Error(t, err)
	_, err = New(WithZones("A", "A"))
	assert.Error(t, err)
	_, err = New(WithZones("A"), WithBuffers("A"))
	assert.Error(t, err)
	_, err = New(WithBudget(0))
	assert.Error(t, err)
}

func TestContextCancelled(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Execute(ctx, program(isa.Halt{}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, FaultedRun, res.Status)
	assert.Empty(t, e.Trace())
}

type failingSink struct{ after int }

func (s *failingSink) Append(_ context.Context, _ string, rec TraceRecord) error {
	if rec.Tick > int64(s.after) {
		return errors.New("disk full")
	}
	return nil
}

func TestSinkFailureFaults(t *testing.T) {
	mem := NewMemorySink()
	e := newEngine(t, WithSink(mem), WithSink(&failingSink{after: 1}))
	seed(t, e, map[string]int64{"A": 2})

	res, err := e.Execute(context.Background(), program(
		isa.Move{Src: 0, Dst: 1, Amount: 1},
		isa.Move{Src: 0, Dst: 2, Amount: 1},
		isa.Move{Src: 1, Dst: 3, Amount: 1},
	))
	require.Error(t, err)
	assert.True(t, IsSinkError(err))
	assert.Equal(t, FaultedRun, res.Status)
	assert.Len(t, mem.Records("run-test"), 2)
}

func TestDeterministicReplay(t *testing.T) {
	run := func() ([]byte, string) {
		e := newEngine(t)
		seed(t, e, map[string]int64{"A": 7, "B": 2, "cache": 1})
		_, err := e.Execute(context.Background(), program(
			isa.Split{Zone: 0, Parts: 3},
			isa.Store{Buffer: 0, Zone: 1},
			isa.Cycle{Zone: 2, Modulus: 2},
			isa.Retrieve{Buffer: 0, Zone: 3},
		))
		require.NoError(t, err)

		data, err := EncodeTrace(e.Trace())
		require.NoError(t, err)
		digest, err := Digest(e.Trace())
		require.NoError(t, err)
		return data, digest
	}

	data1, digest1 := run()
	data2, digest2 := run()
	assert.Equal(t, data1, data2)
	assert.Equal(t, digest1, digest2)
}

func TestExecuteRefusedWhileRunning(t *testing.T) {
	e := newEngine(t)
	e.phase = Running
	_, err := e.Execute(context.Background(), program())
	assert.ErrorIs(t, err, ErrRunning)
	assert.ErrorIs(t, e.Reset(), ErrRunning)
}
