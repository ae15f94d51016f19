package vm

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/lumsvm/vorax/internal/conservation"
	"github.com/lumsvm/vorax/internal/isa"
	"github.com/lumsvm/vorax/internal/lum"
	"github.com/lumsvm/vorax/internal/ownership"
)

// Engine executes programs against one machine.
//
// An Engine is not safe for concurrent use. Run one engine per goroutine.
type Engine struct {
	zones   []string
	buffers []string
	budget  int64
	costs   isa.CostTable
	sinks   []TraceSink
	runIDs  RunIDGenerator
	logger  *slog.Logger

	machine *machine
	meter   *Meter
	clock   *Clock
	checker *ownership.Checker

	phase Phase
	runID string
	pc    int
	steps int
	trace []TraceRecord
	stats conservation.Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithZones sets the zone names. Default: A B C D.
func WithZones(names ...string) Option {
	return func(e *Engine) {
		e.zones = slices.Clone(names)
	}
}

// WithBuffers sets the memory buffer names. Default: buf cache.
func WithBuffers(names ...string) Option {
	return func(e *Engine) {
		e.buffers = slices.Clone(names)
	}
}

// WithBudget sets the energy each run starts with. Default: 1000.
func WithBudget(budget int64) Option {
	return func(e *Engine) {
		e.budget = budget
	}
}

// WithCosts sets the per-class instruction costs.
func WithCosts(c isa.CostTable) Option {
	return func(e *Engine) {
		e.costs = c
	}
}

// WithSink adds a trace sink. May be given more than once.
func WithSink(s TraceSink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sinks = append(e.sinks, s)
		}
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.runIDs = g
		}
	}
}

// WithLogger sets the logger for the engine and its checker.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an idle engine with a zeroed machine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		zones:   slices.Clone(DefaultZones),
		buffers: slices.Clone(DefaultBuffers),
		budget:  DefaultBudget,
		costs:   isa.DefaultCosts(),
		runIDs:  UUIDv7Generator{},
		logger:  slog.Default(),
		clock:   NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := validateNames(e.zones, e.buffers); err != nil {
		return nil, err
	}
	if e.budget <= 0 {
		return nil, fmt.Errorf("vm: budget must be positive, got %d", e.budget)
	}

	e.machine = newMachine(e.zones, e.buffers)
	e.meter = NewMeter(e.budget)
	e.checker = ownership.New(
		ownership.WithTicks(e.clock),
		ownership.WithLogger(e.logger),
	)
	return e, nil
}

func validateNames(zones, buffers []string) error {
	if len(zones) == 0 {
		return fmt.Errorf("vm: at least one zone is required")
	}
	seen := make(map[string]bool, len(zones)+len(buffers))
	for _, n := range slices.Concat(zones, buffers) {
		if n == "" {
			return fmt.Errorf("vm: container names must not be empty")
		}
		if seen[n] {
			return fmt.Errorf("vm: duplicate container name %q", n)
		}
		seen[n] = true
	}
	return nil
}

// Layout returns the machine shape programs must be built for.
func (e *Engine) Layout() isa.Layout {
	return isa.Layout{Zones: len(e.zones), Buffers: len(e.buffers)}
}

// ZoneNames returns the zone names in index order.
func (e *Engine) ZoneNames() []string { return slices.Clone(e.zones) }

// BufferNames returns the buffer names in index order.
func (e *Engine) BufferNames() []string { return slices.Clone(e.buffers) }

// Seed loads count units into an empty container before a run.
func (e *Engine) Seed(container string, count int64) error {
	if e.phase != Idle {
		return ErrNotIdle
	}
	c, ok := e.machine.lookup(container)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownContainer, container)
	}
	if count < 0 {
		return fmt.Errorf("vm: seed count for %s must not be negative, got %d", container, count)
	}
	if err := lum.CheckCount(container, count); err != nil {
		return err
	}
	if c.live() {
		return fmt.Errorf("vm: container %s already holds %d units", container, c.count())
	}
	if count == 0 {
		return nil
	}

	structure := lum.Linear
	if c.kind == bufferCell {
		structure = lum.Memory
	}
	id := c.nextID()
	if err := e.checker.Create(id, c.capability()); err != nil {
		return err
	}
	c.gen++
	c.res = lum.New(id, count, structure)

	e.logger.Debug("container seeded",
		"event", "seed",
		"container", container,
		"resource_id", id,
		"count", count,
	)
	return nil
}

// Execute runs prog from pc 0 with a full meter until it halts.
//
// The machine keeps whatever the previous run or Seed left in it. Running
// out of energy, reaching the end of the stream and HALT all end the run
// normally. Dispatch failures, checker violations, sink failures and
// context cancellation fault it: Execute returns the *RunError together
// with a Result describing the last valid state.
func (e *Engine) Execute(ctx context.Context, prog *isa.Program) (Result, error) {
	if e.phase == Running {
		return Result{}, ErrRunning
	}
	if prog.Layout() != e.Layout() {
		return Result{}, fmt.Errorf("%w: program %+v, machine %+v", ErrLayoutMismatch, prog.Layout(), e.Layout())
	}

	e.runID = e.runIDs.Generate()
	e.pc = 0
	e.steps = 0
	e.trace = nil
	e.stats = conservation.Stats{}
	e.meter.Reset()
	e.clock.Reset()
	e.phase = Running

	e.logger.Info("run starting",
		"run_id", e.runID,
		"instructions", prog.Len(),
		"budget", e.budget,
	)

	for {
		if e.pc >= prog.Len() {
			return e.halt(EndOfProgram, nil), nil
		}
		in := prog.At(e.pc)

		if err := ctx.Err(); err != nil {
			return e.fault(&RunError{Tick: e.clock.Current(), PC: e.pc, Op: in.Op(), Err: err})
		}

		cost := e.costs.Cost(in)
		if err := e.meter.Check(e.pc, in.Op(), cost); err != nil {
			exhausted := err.(*ExhaustedError)
			return e.halt(BudgetExhausted, exhausted), nil
		}

		if err := e.step(ctx, in, cost); err != nil {
			return e.fault(err)
		}

		if in.Op() == isa.HALT {
			return e.halt(HaltInstruction, nil), nil
		}
		e.pc++
	}
}

// step executes one instruction and appends its trace record.
func (e *Engine) step(ctx context.Context, in isa.Instruction, cost int64) error {
	tick := e.clock.Next()
	wrap := func(err error) error {
		return &RunError{Tick: tick, PC: e.pc, Op: in.Op(), Err: err}
	}

	before := e.machine.snapshot()
	tr, err := e.dispatch(in)
	if err != nil {
		return wrap(err)
	}
	if err := e.commit(in.Op(), tr); err != nil {
		return wrap(err)
	}
	left := e.meter.Charge(cost)
	e.steps++
	e.stats.Record(tr.check)

	rec := TraceRecord{
		Tick:         tick,
		PC:           e.pc,
		Op:           in.Op(),
		Instruction:  in.String(),
		Before:       before,
		After:        e.machine.snapshot(),
		Cost:         cost,
		Energy:       left,
		Conservation: tr.check,
	}
	e.trace = append(e.trace, rec)

	e.logger.Debug("instruction executed",
		"event", "step",
		"run_id", e.runID,
		"tick", tick,
		"pc", e.pc,
		"instruction", rec.Instruction,
		"energy", left,
	)
	if !tr.check.Held {
		e.logger.Warn("conservation violated",
			"event", "conservation_violation",
			"run_id", e.runID,
			"tick", tick,
			"instruction", rec.Instruction,
			"class", tr.check.Class.String(),
			"before", tr.check.Before,
			"after", tr.check.After,
		)
	}

	for _, s := range e.sinks {
		if err := s.Append(ctx, e.runID, rec); err != nil {
			return wrap(&SinkError{RunID: e.runID, Tick: tick, Err: err})
		}
	}
	return nil
}

func (e *Engine) halt(reason HaltReason, exhausted *ExhaustedError) Result {
	e.phase = Halted
	res := e.result(reason, nil)
	res.Exhaustion = exhausted
	e.logger.Info("run halted",
		"run_id", e.runID,
		"reason", reason.String(),
		"status", res.Status.String(),
		"ticks", res.Stats.Ticks,
		"energy_used", res.Stats.EnergyUsed,
		"violations", res.Stats.Conservation.Violations,
	)
	return res
}

func (e *Engine) fault(err error) (Result, error) {
	e.phase = Faulted
	res := e.result(Fault, err)
	e.logger.Error("run faulted",
		"run_id", e.runID,
		"error", err,
		"ticks", res.Stats.Ticks,
	)
	return res, err
}

func (e *Engine) result(reason HaltReason, err error) Result {
	status := Clean
	switch {
	case err != nil:
		status = FaultedRun
	case !e.stats.Clean():
		status = Tolerated
	}
	return Result{
		RunID:     e.runID,
		Status:    status,
		Reason:    reason,
		Stats:     e.Stats(),
		State:     e.machine.snapshot(),
		Ownership: e.checker.Stats(),
		Leaks:     e.checker.Leaks(),
		Err:       err,
	}
}

// Reset zeroes the machine, refills the meter, discards the trace and
// clears the ownership table. It is refused while a run is in progress.
func (e *Engine) Reset() error {
	if e.phase == Running {
		return ErrRunning
	}
	e.machine.clear()
	e.checker.Reset()
	e.meter.Reset()
	e.clock.Reset()
	e.trace = nil
	e.stats = conservation.Stats{}
	e.steps = 0
	e.pc = 0
	e.runID = ""
	e.phase = Idle
	return nil
}

// Borrow opens a checker borrow on the resource a container holds.
// While the borrow is open, instructions touching the container fault.
func (e *Engine) Borrow(container, borrower string) error {
	c, ok := e.machine.lookup(container)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownContainer, container)
	}
	if !c.live() {
		return &ownership.LinearViolation{Op: "borrow", ID: container, Reason: ownership.ReasonNotFound}
	}
	return e.checker.Borrow(c.res.ID, borrower)
}

// Return closes the innermost borrow, which must be on container.
func (e *Engine) Return(container string) error {
	c, ok := e.machine.lookup(container)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownContainer, container)
	}
	id := c.res.ID
	if !c.live() {
		id = container
	}
	return e.checker.ReturnBorrow(id)
}

// State returns the current container counts.
func (e *Engine) State() Snapshot { return e.machine.snapshot() }

// Status returns the lifecycle phase.
func (e *Engine) Status() Phase { return e.phase }

// RunID returns the id of the current or last run.
func (e *Engine) RunID() string { return e.runID }

// PC returns the instruction pointer.
func (e *Engine) PC() int { return e.pc }

// Trace returns a copy of the current or last run's records.
func (e *Engine) Trace() []TraceRecord { return slices.Clone(e.trace) }

// Ownership returns the checker's counts.
func (e *Engine) Ownership() ownership.Stats { return e.checker.Stats() }

// Records returns every ownership record ordered by id.
func (e *Engine) Records() []ownership.Record { return e.checker.Records() }

// Leaks returns borrows that were never returned.
func (e *Engine) Leaks() []ownership.Borrow { return e.checker.Leaks() }

// Stats returns the counters of the current or last run.
func (e *Engine) Stats() RunStats {
	return RunStats{
		Steps:        e.steps,
		Ticks:        e.clock.Current(),
		EnergyUsed:   e.meter.Used(),
		EnergyLeft:   e.meter.Remaining(),
		Conservation: e.stats,
	}
}
