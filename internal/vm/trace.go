package vm

import (
	"encoding/json"
	"fmt"

	"github.com/lumsvm/vorax/internal/conservation"
	"github.com/lumsvm/vorax/internal/ir"
	"github.com/lumsvm/vorax/internal/isa"
)

// TraceRecord is the immutable log entry of one executed instruction.
type TraceRecord struct {
	Tick         int64
	PC           int
	Op           isa.OpCode
	Instruction  string
	Before       Snapshot
	After        Snapshot
	Cost         int64
	Energy       int64 // remaining after the charge
	Conservation conservation.Check
}

// Value converts the record into the canonical value tree.
func (r TraceRecord) Value() ir.Object {
	return ir.Object{
		"tick":        ir.Int(r.Tick),
		"pc":          ir.Int(int64(r.PC)),
		"op":          ir.String(r.Op.String()),
		"instruction": ir.String(r.Instruction),
		"before":      r.Before.toValue(),
		"after":       r.After.toValue(),
		"cost":        ir.Int(r.Cost),
		"energy":      ir.Int(r.Energy),
		"conservation": ir.Object{
			"class":   ir.String(r.Conservation.Class.String()),
			"before":  ir.Int(r.Conservation.Before),
			"after":   ir.Int(r.Conservation.After),
			"modulus": ir.Int(r.Conservation.Modulus),
			"held":    ir.Bool(r.Conservation.Held),
		},
	}
}

// MarshalJSON emits the canonical encoding.
func (r TraceRecord) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(r.Value())
}

type snapshotJSON struct {
	Zones   []int64 `json:"zones"`
	Buffers []int64 `json:"buffers"`
}

type checkJSON struct {
	Class   string `json:"class"`
	Before  int64  `json:"before"`
	After   int64  `json:"after"`
	Modulus int64  `json:"modulus"`
	Held    bool   `json:"held"`
}

type traceRecordJSON struct {
	Tick         int64        `json:"tick"`
	PC           int          `json:"pc"`
	Op           string       `json:"op"`
	Instruction  string       `json:"instruction"`
	Before       snapshotJSON `json:"before"`
	After        snapshotJSON `json:"after"`
	Cost         int64        `json:"cost"`
	Energy       int64        `json:"energy"`
	Conservation checkJSON    `json:"conservation"`
}

// UnmarshalJSON decodes a record written by MarshalJSON.
func (r *TraceRecord) UnmarshalJSON(data []byte) error {
	var aux traceRecordJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	op, ok := isa.StringToOp(aux.Op)
	if !ok {
		return fmt.Errorf("trace record tick %d: unknown op %q", aux.Tick, aux.Op)
	}
	class, ok := conservation.ParseClass(aux.Conservation.Class)
	if !ok {
		return fmt.Errorf("trace record tick %d: unknown conservation class %q", aux.Tick, aux.Conservation.Class)
	}
	*r = TraceRecord{
		Tick:        aux.Tick,
		PC:          aux.PC,
		Op:          op,
		Instruction: aux.Instruction,
		Before:      Snapshot{Zones: aux.Before.Zones, Buffers: aux.Before.Buffers},
		After:       Snapshot{Zones: aux.After.Zones, Buffers: aux.After.Buffers},
		Cost:        aux.Cost,
		Energy:      aux.Energy,
		Conservation: conservation.Check{
			Class:   class,
			Before:  aux.Conservation.Before,
			After:   aux.Conservation.After,
			Modulus: aux.Conservation.Modulus,
			Held:    aux.Conservation.Held,
		},
	}
	return nil
}

// TraceValue converts a trace into a canonical array.
func TraceValue(records []TraceRecord) ir.Array {
	arr := make(ir.Array, len(records))
	for i, r := range records {
		arr[i] = r.Value()
	}
	return arr
}

// EncodeTrace returns the canonical JSON encoding of a trace. Identical
// runs encode to identical bytes.
func EncodeTrace(records []TraceRecord) ([]byte, error) {
	return ir.MarshalCanonical(TraceValue(records))
}

// Digest returns the domain-separated hash of the canonical trace.
func Digest(records []TraceRecord) (string, error) {
	data, err := EncodeTrace(records)
	if err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}
	return ir.TraceDigest(data), nil
}
