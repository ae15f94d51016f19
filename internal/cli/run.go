package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumsvm/vorax/internal/config"
	"github.com/lumsvm/vorax/internal/ir"
	"github.com/lumsvm/vorax/internal/store"
	"github.com/lumsvm/vorax/internal/vm"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs vm.RunIDGenerator
}

// RunSummary is the output of run and replay.
type RunSummary struct {
	RunID       string           `json:"run_id"`
	Program     string           `json:"program"`
	ProgramHash string           `json:"program_hash"`
	Status      string           `json:"status"`
	Reason      string           `json:"reason"`
	Steps       int              `json:"steps"`
	Ticks       int64            `json:"ticks"`
	EnergyUsed  int64            `json:"energy_used"`
	EnergyLeft  int64            `json:"energy_left"`
	Violations  int              `json:"violations"`
	Final       map[string]int64 `json:"final"`
	Digest      string           `json:"digest"`
	Error       string           `json:"error,omitempty"`
}

func summarize(name, hash string, cfg config.Config, res vm.Result, digest string) RunSummary {
	s := RunSummary{
		RunID:       res.RunID,
		Program:     name,
		ProgramHash: hash,
		Status:      res.Status.String(),
		Reason:      res.Reason.String(),
		Steps:       res.Stats.Steps,
		Ticks:       res.Stats.Ticks,
		EnergyUsed:  res.Stats.EnergyUsed,
		EnergyLeft:  res.Stats.EnergyLeft,
		Violations:  res.Stats.Conservation.Violations,
		Final:       res.State.Named(cfg.Zones, cfg.Buffers),
		Digest:      digest,
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return s
}

// Text renders the summary for the terminal.
func (s RunSummary) Text(cfg config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s)\n", s.RunID, s.Program)
	fmt.Fprintf(&b, "  status:   %s (%s)\n", s.Status, s.Reason)
	fmt.Fprintf(&b, "  ticks:    %d\n", s.Ticks)
	fmt.Fprintf(&b, "  energy:   %d used, %d left\n", s.EnergyUsed, s.EnergyLeft)
	fmt.Fprintf(&b, "  violations: %d\n", s.Violations)
	fmt.Fprintf(&b, "  zones:   ")
	for _, z := range cfg.Zones {
		fmt.Fprintf(&b, " %s=%d", z, s.Final[z])
	}
	fmt.Fprintf(&b, "\n  buffers: ")
	for _, buf := range cfg.Buffers {
		fmt.Fprintf(&b, " %s=%d", buf, s.Final[buf])
	}
	fmt.Fprintf(&b, "\n  digest:   %s\n", s.Digest)
	if s.Error != "" {
		fmt.Fprintf(&b, "  error:    %s\n", s.Error)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Execute a program document",
		Long: `Compile a program document (YAML, CUE or JSON) and execute it.

Seeds from the document are loaded first. The run ends at the end of the
stream, on HALT, or when the energy budget is exhausted. With --db the
run and every trace record are persisted to SQLite; with --log-file
trace records are also written as JSON lines.

Exit codes:
  0 - Run halted normally (clean or tolerated)
  1 - Invalid program or the run faulted
  2 - Command error (missing files, database errors)

Examples:
  vorax run ./programs/fuse.yaml
  vorax run --db ./vorax.db --config ./machine.cue ./programs/fuse.cue
  vorax run --log-file ./run.jsonl --format json ./programs/fuse.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the run to this SQLite database")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	logs, err := newLogging(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	defer logs.Close()
	logger := logs.Logger

	cfg, err := loadMachine(opts.RootOptions)
	if err != nil {
		return err
	}
	doc, compiled, err := loadProgram(path, cfg)
	if err != nil {
		return err
	}
	out.VerboseLog("compiled %s: %d instructions, hash %s", compiled.Name, compiled.Program.Len(), compiled.Hash)

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = vm.UUIDv7Generator{}
	}
	runID := runIDs.Generate()

	engineOpts := append(cfg.Options(),
		vm.WithLogger(logger),
		vm.WithRunIDGenerator(vm.NewFixedGenerator(runID)),
	)
	if logs.Trace != nil {
		engineOpts = append(engineOpts, vm.WithSink(vm.NewLogSink(logs.Trace)))
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if opts.Database != "" {
		st, err = openStore(opts.Database, true)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		program, err := doc.Canonical()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode program", err)
		}
		machine, err := ir.MarshalCanonical(cfg.Value())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode machine", err)
		}
		if err := st.BeginRun(ctx, store.Run{
			ID:            runID,
			ProgramHash:   compiled.Hash,
			Program:       program,
			Machine:       machine,
			EngineVersion: ir.EngineVersion,
			TraceVersion:  ir.TraceVersion,
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		engineOpts = append(engineOpts, vm.WithSink(st))
	}

	eng, err := vm.New(engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	for _, s := range compiled.Seeds {
		if err := eng.Seed(s.Container, s.Count); err != nil {
			return WrapExitError(ExitFailure, "failed to seed "+s.Container, err)
		}
	}

	res, runErr := eng.Execute(ctx, compiled.Program)
	if runErr != nil && res.RunID == "" {
		return WrapExitError(ExitCommandError, "failed to execute", runErr)
	}

	digest, err := vm.Digest(eng.Trace())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to digest trace", err)
	}

	if st != nil {
		// The run context may be canceled; the outcome is still recorded.
		if err := st.FinishRun(context.WithoutCancel(ctx), runID, store.OutcomeFromResult(res, digest)); err != nil {
			return WrapExitError(ExitCommandError, "failed to record outcome", err)
		}
	}

	summary := summarize(compiled.Name, compiled.Hash, cfg, res, digest)
	if err := out.Success(summary, summary.Text(cfg)); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "run faulted", runErr)
	}
	return nil
}
