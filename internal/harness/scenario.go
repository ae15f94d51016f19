package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lumsvm/vorax/internal/compiler"
	"github.com/lumsvm/vorax/internal/config"
	"github.com/lumsvm/vorax/internal/vm"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Machine overrides the default machine configuration.
	Machine config.Overrides `yaml:"machine,omitempty"`

	// Seeds are initial unit counts per container name.
	Seeds map[string]int64 `yaml:"seeds,omitempty"`

	// Borrows are taken after seeding and before the run.
	Borrows []BorrowStep `yaml:"borrows,omitempty"`

	// Program is the instruction stream, with named operands.
	Program []compiler.Step `yaml:"program"`

	// Expect checks the run outcome. Nil skips the check.
	Expect *Expect `yaml:"expect,omitempty"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is an optional fixed run id.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// BorrowStep lends a container to a borrower before execution.
type BorrowStep struct {
	Container string `yaml:"container"`
	Borrower  string `yaml:"borrower"`
}

// Expect specifies the expected run outcome. Unset fields are not checked.
type Expect struct {
	Status     string           `yaml:"status,omitempty"`
	Reason     string           `yaml:"reason,omitempty"`
	Zones      map[string]int64 `yaml:"zones,omitempty"`
	Buffers    map[string]int64 `yaml:"buffers,omitempty"`
	Violations *int             `yaml:"violations,omitempty"`
	EnergyLeft *int64           `yaml:"energy_left,omitempty"`

	// Error is the expected error kind, see ErrorKind.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count,
	// final_state and conservation.
	Type string `yaml:"type"`

	// Op is the opcode name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Instruction is the rendered instruction, e.g. "FUSE 0 1"
	// (trace_contains).
	Instruction string `yaml:"instruction,omitempty"`

	// Ops is the expected op order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of records (trace_count) or units
	// (final_state).
	Count int64 `yaml:"count,omitempty"`

	// Container names a zone or buffer (final_state).
	Container string `yaml:"container,omitempty"`

	// Tick selects a trace record (conservation).
	Tick int64 `yaml:"tick,omitempty"`

	// Held is the expected conservation outcome (conservation).
	Held *bool `yaml:"held,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertConservation  = "conservation"
)

// Document returns the scenario's program as a compiler document.
func (s *Scenario) Document() *compiler.Document {
	return &compiler.Document{Name: s.Name, Seeds: s.Seeds, Program: s.Program}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Program) == 0 {
		return fmt.Errorf("program list is required and must be non-empty")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions are required")
	}

	for i, step := range s.Program {
		if step.Op == "" {
			return fmt.Errorf("program[%d]: op is required", i)
		}
	}

	for i, b := range s.Borrows {
		if b.Container == "" || b.Borrower == "" {
			return fmt.Errorf("borrows[%d]: container and borrower are required", i)
		}
	}

	if s.Expect != nil {
		if err := validateExpect(s.Expect); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateExpect(e *Expect) error {
	if e.Status != "" {
		if _, ok := vm.ParseStatus(e.Status); !ok {
			return fmt.Errorf("expect.status: unknown status %q", e.Status)
		}
	}
	if e.Reason != "" {
		if _, ok := vm.ParseHaltReason(e.Reason); !ok {
			return fmt.Errorf("expect.reason: unknown halt reason %q", e.Reason)
		}
	}
	if e.Error != "" && !knownErrorKind(e.Error) {
		return fmt.Errorf("expect.error: unknown error kind %q", e.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" && a.Instruction == "" {
			return fmt.Errorf("assertions[%d]: op or instruction is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Container == "" {
			return fmt.Errorf("assertions[%d]: container is required for final_state", index)
		}
	case AssertConservation:
		if a.Tick <= 0 {
			return fmt.Errorf("assertions[%d]: tick is required for conservation", index)
		}
		if a.Held == nil {
			return fmt.Errorf("assertions[%d]: held is required for conservation", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
