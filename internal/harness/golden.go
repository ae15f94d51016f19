package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/lumsvm/vorax/internal/ir"
	"github.com/lumsvm/vorax/internal/vm"
)

// TraceSnapshot captures the trace of a scenario execution.
type TraceSnapshot struct {
	Scenario string
	Trace    []vm.TraceRecord
}

// Canonical returns the canonical JSON encoding of the snapshot.
func (s TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(ir.Object{
		"scenario": ir.String(s.Scenario),
		"trace":    vm.TraceValue(s.Trace),
	})
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be executed. Expectation
// failures and golden mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against the golden
// file for name without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := TraceSnapshot{Scenario: name, Trace: result.Trace}.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
