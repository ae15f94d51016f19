package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/lumsvm/vorax/internal/compiler"
	"github.com/lumsvm/vorax/internal/config"
	"github.com/lumsvm/vorax/internal/isa"
	"github.com/lumsvm/vorax/internal/lum"
	"github.com/lumsvm/vorax/internal/ownership"
	"github.com/lumsvm/vorax/internal/testutil"
	"github.com/lumsvm/vorax/internal/vm"
)

// Error kinds reported by ErrorKind.
const (
	KindCompile         = "compile"
	KindInvalidOperand  = "invalid_operand"
	KindUnknownOpcode   = "unknown_opcode"
	KindLinearViolation = "linear_violation"
	KindNoActiveBorrow  = "no_active_borrow"
	KindCountOverflow   = "count_overflow"
	KindSink            = "sink"
	KindCanceled        = "canceled"
	KindOther           = "other"
)

func knownErrorKind(k string) bool {
	switch k {
	case KindCompile, KindInvalidOperand, KindUnknownOpcode, KindLinearViolation,
		KindNoActiveBorrow, KindCountOverflow, KindSink, KindCanceled, KindOther:
		return true
	}
	return false
}

// ErrorKind classifies a compile or run error. Errors wrapping an
// instruction error report that kind even when they surfaced while
// compiling.
func ErrorKind(err error) string {
	var ce *compiler.CompileError
	switch {
	case err == nil:
		return ""
	case ownership.IsLinearViolation(err):
		return KindLinearViolation
	case ownership.IsNoActiveBorrow(err):
		return KindNoActiveBorrow
	case isa.IsInvalidOperand(err):
		return KindInvalidOperand
	case isa.IsUnknownOpcode(err):
		return KindUnknownOpcode
	case lum.IsCountOverflow(err):
		return KindCountOverflow
	case vm.IsSinkError(err):
		return KindSink
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &ce):
		return KindCompile
	default:
		return KindOther
	}
}

// Harness runs scenarios on one machine configuration.
type Harness struct {
	base   config.Config
	logger *slog.Logger
	sinks  []vm.TraceSink
}

// Option configures a Harness.
type Option func(*Harness)

// WithConfig sets the base machine that scenario overrides apply to.
func WithConfig(c config.Config) Option {
	return func(h *Harness) { h.base = c }
}

// WithLogger routes engine logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithSink adds a sink that receives every record alongside the
// in-memory one.
func WithSink(s vm.TraceSink) Option {
	return func(h *Harness) { h.sinks = append(h.sinks, s) }
}

// New creates a harness over config.Default().
func New(opts ...Option) *Harness {
	h := &Harness{
		base:   config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario on the default machine.
//
// Each scenario runs on a fresh engine with a fixed run id. Setup
// failures (bad machine overrides, seeds or borrows) are returned as
// errors; compile and run errors are checked against expect.error.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and evaluates its expectations and assertions.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg := h.base.Apply(scenario.Machine)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: machine: %w", scenario.Name, err)
	}

	runIDs := testutil.NewFixedRunGenerator(scenario.RunID)
	mem := vm.NewMemorySink()
	opts := append(cfg.Options(),
		vm.WithSink(vm.Fanout(append([]vm.TraceSink{mem}, h.sinks...)...)),
		vm.WithRunIDGenerator(runIDs),
		vm.WithLogger(h.logger),
	)
	eng, err := vm.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: engine: %w", scenario.Name, err)
	}

	result := NewResult()
	result.RunID = runIDs.Generate()

	compiled, err := compiler.Compile(scenario.Document(), compiler.Machine{Zones: cfg.Zones, Buffers: cfg.Buffers})
	if err != nil {
		result.Err = err
		result.Run = vm.Result{RunID: result.RunID, Status: vm.FaultedRun, Reason: vm.Fault, Err: err}
		h.evaluate(scenario, result)
		return result, nil
	}

	if err := h.setup(eng, scenario, compiled.Seeds); err != nil {
		return nil, fmt.Errorf("scenario %s: setup: %w", scenario.Name, err)
	}

	res, err := eng.Execute(ctx, compiled.Program)
	if err != nil && res.RunID == "" {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.Run = res
	result.Err = err
	result.Trace = append(result.Trace, mem.Records(result.RunID)...)
	result.Final = res.State.Named(cfg.Zones, cfg.Buffers)

	h.evaluate(scenario, result)
	return result, nil
}

func (h *Harness) setup(eng *vm.Engine, scenario *Scenario, seeds []compiler.Seed) error {
	for _, s := range seeds {
		if err := eng.Seed(s.Container, s.Count); err != nil {
			return err
		}
	}
	for i, b := range scenario.Borrows {
		if err := eng.Borrow(b.Container, b.Borrower); err != nil {
			return fmt.Errorf("borrows[%d]: %w", i, err)
		}
	}
	return nil
}

func (h *Harness) evaluate(scenario *Scenario, result *Result) {
	if scenario.Expect != nil {
		for _, msg := range checkExpect(scenario.Expect, result) {
			result.AddError(msg)
		}
	} else if result.Err != nil {
		result.AddError(fmt.Sprintf("unexpected error: %v", result.Err))
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
}

func checkExpect(e *Expect, r *Result) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	kind := ErrorKind(r.Err)
	switch {
	case e.Error == "" && r.Err != nil:
		fail("unexpected error: %v", r.Err)
	case e.Error != "" && kind != e.Error:
		fail("expected %s error, got %q (%v)", e.Error, kind, r.Err)
	}

	if e.Status != "" && r.Run.Status.String() != e.Status {
		fail("expected status %s, got %s", e.Status, r.Run.Status)
	}
	if e.Reason != "" && r.Run.Reason.String() != e.Reason {
		fail("expected halt reason %s, got %s", e.Reason, r.Run.Reason)
	}
	for _, want := range []map[string]int64{e.Zones, e.Buffers} {
		for _, name := range slices.Sorted(maps.Keys(want)) {
			got, ok := r.Final[name]
			if !ok {
				fail("unknown container %s", name)
				continue
			}
			if got != want[name] {
				fail("expected %s = %d, got %d", name, want[name], got)
			}
		}
	}
	if e.Violations != nil && r.Run.Stats.Conservation.Violations != *e.Violations {
		fail("expected %d conservation violations, got %d", *e.Violations, r.Run.Stats.Conservation.Violations)
	}
	if e.EnergyLeft != nil && r.Run.Stats.EnergyLeft != *e.EnergyLeft {
		fail("expected %d energy left, got %d", *e.EnergyLeft, r.Run.Stats.EnergyLeft)
	}
	return errs
}
