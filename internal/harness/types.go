package harness

import "github.com/lumsvm/vorax/internal/vm"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool

	// RunID is the fixed run id the scenario executed under.
	RunID string

	// Run is the engine's result. Zero when the program did not compile.
	Run vm.Result

	// Err is the compile or run error, if any.
	Err error

	// Trace holds the records the sink received, in tick order.
	Trace []vm.TraceRecord

	// Final maps container names to their counts after the run.
	Final map[string]int64

	// Errors contains failed expectations and assertions.
	Errors []string
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []vm.TraceRecord{},
		Final:  map[string]int64{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
