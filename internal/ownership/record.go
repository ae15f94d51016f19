package ownership

import (
	"fmt"
	"slices"
)

// State is the lifecycle position of a resource.
type State uint8

const (
	Owned State = iota + 1
	Borrowed
	Consumed
)

func (s State) String() string {
	switch s {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	case Consumed:
		return "consumed"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}

// Op is an ownership-changing operation.
type Op string

const (
	OpCreate  Op = "create"
	OpSplit   Op = "split"
	OpFuse    Op = "fuse"
	OpConsume Op = "consume"
)

// Record tracks one resource. Records returned by the checker are copies.
type Record struct {
	ID            string
	State         State
	Borrower      string
	LifetimeStart int64
	LifetimeEnd   int64
	Ended         bool // LifetimeEnd is meaningful only when true
	Capabilities  []string
}

// HasCapability reports whether cap is in the record's set.
func (r Record) HasCapability(cap string) bool {
	_, found := slices.BinarySearch(r.Capabilities, cap)
	return found
}

func (r *Record) clone() Record {
	cp := *r
	cp.Capabilities = slices.Clone(r.Capabilities)
	return cp
}

// unionCaps merges capability sets into a sorted, de-duplicated slice.
func unionCaps(sets ...[]string) []string {
	var out []string
	for _, s := range sets {
		out = append(out, s...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
