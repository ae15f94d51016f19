package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumsvm/vorax/internal/compiler"
	"github.com/lumsvm/vorax/internal/config"
	"github.com/lumsvm/vorax/internal/store"
	"github.com/lumsvm/vorax/internal/vm"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Program       string `json:"program"`
	RecordedTicks int    `json:"recorded_ticks"`
	ReplayedTicks int    `json:"replayed_ticks"`
	StoredDigest  string `json:"stored_digest"`
	TraceDigest   string `json:"trace_digest"`
	ReplayDigest  string `json:"replay_digest"`
	Status        string `json:"status"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Re-execute stored runs and verify determinism",
		Long: `Re-execute stored runs from their recorded program and machine and
compare trace digests.

A run is deterministic when the digest recorded at the end of the run,
the digest of the stored trace records and the digest of the replayed
trace are identical. Without a run id every stored run is replayed.

Exit codes:
  0 - All replayed runs are deterministic
  1 - A replay diverged
  2 - Command error (database not found, unknown run, etc.)

Examples:
  vorax replay --db ./vorax.db
  vorax replay --db ./vorax.db 0192f1c2-...
  vorax replay --db ./vorax.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, args []string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)

	st, err := openStore(opts.Database, false)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if len(args) == 1 {
		run, err := st.ReadRun(ctx, args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	logs, err := newLogging(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	defer logs.Close()

	result := ReplayResult{Runs: make([]ReplayRunResult, 0, len(runs)), AllDeterministic: true}
	for _, run := range runs {
		r := replayRun(ctx, st, run, logs)
		if !r.Deterministic {
			result.AllDeterministic = false
		}
		result.Runs = append(result.Runs, r)
	}
	result.TotalRuns = len(result.Runs)

	if err := newFormatter(cmd, opts.RootOptions).Success(result, replayText(result)); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from the stored trace")
	}
	return nil
}

// replayRun re-executes one stored run on a fresh engine under the same
// run id. Problems are reported in the result, not returned.
func replayRun(ctx context.Context, st *store.Store, run store.Run, logs *logging) ReplayRunResult {
	r := ReplayRunResult{RunID: run.ID, StoredDigest: run.Digest, Status: run.Status}
	fail := func(format string, args ...any) ReplayRunResult {
		r.Error = fmt.Sprintf(format, args...)
		return r
	}

	records, err := st.ReadTrace(ctx, run.ID)
	if err != nil {
		return fail("read trace: %v", err)
	}
	r.RecordedTicks = len(records)
	if r.TraceDigest, err = vm.Digest(records); err != nil {
		return fail("digest stored trace: %v", err)
	}

	doc, err := compiler.ParseJSON(run.Program)
	if err != nil {
		return fail("decode program: %v", err)
	}
	r.Program = doc.Name
	cfg, err := config.Parse(run.Machine, "machine.json")
	if err != nil {
		return fail("decode machine: %v", err)
	}
	compiled, err := compiler.Compile(doc, machineOf(cfg))
	if err != nil {
		return fail("compile: %v", err)
	}
	if compiled.Hash != run.ProgramHash {
		return fail("program hash %s does not match stored %s", compiled.Hash, run.ProgramHash)
	}

	eng, err := vm.New(append(cfg.Options(),
		vm.WithLogger(logs.Logger),
		vm.WithRunIDGenerator(vm.NewFixedGenerator(run.ID)),
	)...)
	if err != nil {
		return fail("engine: %v", err)
	}
	for _, s := range compiled.Seeds {
		if err := eng.Seed(s.Container, s.Count); err != nil {
			return fail("seed %s: %v", s.Container, err)
		}
	}
	res, err := eng.Execute(ctx, compiled.Program)
	if err != nil && res.RunID == "" {
		return fail("execute: %v", err)
	}

	replayed := eng.Trace()
	r.ReplayedTicks = len(replayed)
	if r.ReplayDigest, err = vm.Digest(replayed); err != nil {
		return fail("digest replay: %v", err)
	}
	r.Deterministic = r.ReplayDigest == r.TraceDigest &&
		(run.Digest == "" || run.Digest == r.ReplayDigest) &&
		res.Status.String() == statusOrRunning(run.Status, res.Status.String())
	return r
}

// statusOrRunning returns replayed for runs that never recorded an
// outcome, so an interrupted run is compared on its trace alone.
func statusOrRunning(stored, replayed string) string {
	if stored == "running" {
		return replayed
	}
	return stored
}

func replayText(result ReplayResult) string {
	var b strings.Builder
	for _, r := range result.Runs {
		verdict := "deterministic"
		if !r.Deterministic {
			verdict = "DIVERGED"
		}
		fmt.Fprintf(&b, "%s  %-14s %s  ticks %d/%d  digest %s\n",
			r.RunID, verdict, r.Program, r.ReplayedTicks, r.RecordedTicks, shortDigest(r.ReplayDigest))
		if r.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", r.Error)
		}
	}
	fmt.Fprintf(&b, "%d runs replayed", result.TotalRuns)
	if result.AllDeterministic {
		b.WriteString(", all deterministic\n")
	} else {
		b.WriteString(", divergence detected\n")
	}
	return b.String()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
