package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumsvm/vorax/internal/compiler"
	"github.com/lumsvm/vorax/internal/config"
)

// ValidateResult is the output of validate.
type ValidateResult struct {
	Name         string   `json:"name"`
	Hash         string   `json:"hash"`
	Instructions []string `json:"instructions"`
	Seeds        []string `json:"seeds"`
	Zones        []string `json:"zones"`
	Buffers      []string `json:"buffers"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>...",
		Short: "Compile programs without running them",
		Long: `Parse and compile program documents against the machine layout.

Operand names are resolved to zone and buffer indices, operands are
range-checked and seeds are matched to containers. Nothing is executed.

Exit codes:
  0 - All programs are valid
  1 - At least one program is invalid
  2 - Command error (missing files, bad configuration)

Examples:
  vorax validate ./programs/fuse.yaml
  vorax validate --config ./machine.cue ./programs/*.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	cfg, err := loadMachine(opts)
	if err != nil {
		return err
	}

	results := make([]ValidateResult, 0, len(paths))
	var text strings.Builder
	for _, path := range paths {
		_, compiled, err := loadProgram(path, cfg)
		if err != nil {
			if GetExitCode(err) == ExitFailure {
				_ = out.Error("E001", fmt.Sprintf("%s: %v", path, err), nil)
			}
			return err
		}
		r := validateResult(compiled, cfg)
		results = append(results, r)

		fmt.Fprintf(&text, "%s: ok (%s, %d instructions)\n", path, r.Name, len(r.Instructions))
		if opts.Verbose {
			for i, in := range r.Instructions {
				fmt.Fprintf(&text, "  %3d  %s\n", i, in)
			}
		}
	}

	return out.Success(results, text.String())
}

func validateResult(c *compiler.Compiled, cfg config.Config) ValidateResult {
	r := ValidateResult{
		Name:         c.Name,
		Hash:         c.Hash,
		Instructions: make([]string, 0, c.Program.Len()),
		Seeds:        make([]string, 0, len(c.Seeds)),
		Zones:        cfg.Zones,
		Buffers:      cfg.Buffers,
	}
	for _, in := range c.Program.Instructions() {
		r.Instructions = append(r.Instructions, in.String())
	}
	for _, s := range c.Seeds {
		r.Seeds = append(r.Seeds, fmt.Sprintf("%s=%d", s.Container, s.Count))
	}
	return r
}
