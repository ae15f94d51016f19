package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumsvm/vorax/internal/store"
	"github.com/lumsvm/vorax/internal/vm"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// RunListing describes a stored run.
type RunListing struct {
	ID          string `json:"id"`
	ProgramHash string `json:"program_hash"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	Ticks       int64  `json:"ticks"`
	Violations  int    `json:"violations"`
}

// TraceOutput is the JSON output of trace for one run.
type TraceOutput struct {
	RunID   string           `json:"run_id"`
	Status  string           `json:"status"`
	Records []vm.TraceRecord `json:"records"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show stored runs and their trace records",
		Long: `Print the trace of a stored run, one record per tick.

Without a run id, lists the stored runs in insertion order.

Examples:
  vorax trace --db ./vorax.db
  vorax trace --db ./vorax.db 0192f1c2-...
  vorax trace --db ./vorax.db --format json 0192f1c2-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runListRuns(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := openStore(opts.Database, false)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmdContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	listings := make([]RunListing, 0, len(runs))
	var text strings.Builder
	for _, r := range runs {
		listings = append(listings, RunListing{
			ID:          r.ID,
			ProgramHash: r.ProgramHash,
			Status:      r.Status,
			Reason:      r.Reason,
			Ticks:       r.Ticks,
			Violations:  r.Violations,
		})
		fmt.Fprintf(&text, "%s  %-9s %-16s ticks=%d violations=%d\n", r.ID, r.Status, r.Reason, r.Ticks, r.Violations)
	}
	if len(runs) == 0 {
		text.WriteString("no runs\n")
	}
	return newFormatter(cmd, opts.RootOptions).Success(listings, text.String())
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	st, err := openStore(opts.Database, false)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmdContext(cmd)
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	records, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	return newFormatter(cmd, opts.RootOptions).Success(
		TraceOutput{RunID: runID, Status: run.Status, Records: records},
		traceText(run, records),
	)
}

func traceText(run store.Run, records []vm.TraceRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s (%s)\n", run.ID, run.Status, run.Reason)
	for _, rec := range records {
		held := "held"
		if !rec.Conservation.Held {
			held = "VIOLATED"
		}
		fmt.Fprintf(&b, "%4d  pc=%-3d %-16s zones %v -> %v  buffers %v -> %v  energy=%d  %s %s\n",
			rec.Tick, rec.PC, rec.Instruction,
			rec.Before.Zones, rec.After.Zones,
			rec.Before.Buffers, rec.After.Buffers,
			rec.Energy, rec.Conservation.Class, held,
		)
	}
	return b.String()
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
