package testutil

// FixedRunGenerator returns the same run id on every call.
//
// Runs with the same program, seeds and FixedRunGenerator produce
// byte-identical traces, which the golden tests rely on.
type FixedRunGenerator struct {
	id string
}

// NewFixedRunGenerator creates a generator for id.
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunGenerator(id string) *FixedRunGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunGenerator) Generate() string {
	return g.id
}
