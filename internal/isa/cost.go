package isa

// DefaultHigherOrderCost is charged by Compress and Expand when the
// program does not declare a cost. It is also the minimum they may declare.
const DefaultHigherOrderCost int64 = 3

// CostTable holds the energy charged per instruction class.
type CostTable struct {
	Slot        int64 // FUSE, SPLIT, MOVE, CYCLE
	Memory      int64 // STORE, RETRIEVE
	HigherOrder int64 // floor for COMPRESS, EXPAND
}

// DefaultCosts returns slot 1, memory 2, higher-order 3.
func DefaultCosts() CostTable {
	return CostTable{Slot: 1, Memory: 2, HigherOrder: DefaultHigherOrderCost}
}

// EffectiveCost resolves a declared higher-order cost.
func EffectiveCost(declared int64) int64 {
	if declared == 0 {
		return DefaultHigherOrderCost
	}
	return declared
}

// Cost returns the energy charged for in. HALT is free.
func (c CostTable) Cost(in Instruction) int64 {
	switch i := in.(type) {
	case Fuse, Split, Move, Cycle:
		return c.Slot
	case Store, Retrieve:
		return c.Memory
	case Compress:
		return max(EffectiveCost(i.Cost), c.HigherOrder)
	case Expand:
		return max(EffectiveCost(i.Cost), c.HigherOrder)
	default:
		return 0
	}
}
