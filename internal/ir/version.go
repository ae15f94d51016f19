package ir

// Version constants for the trace encoding and engine.
const (
	// TraceVersion is the trace record encoding version.
	TraceVersion = "1"

	// EngineVersion is the VORAX engine version.
	EngineVersion = "0.1.0"
)
