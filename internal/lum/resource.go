package lum

import (
	"errors"
	"fmt"
	"math"
)

// Unit is a binary presence flag. Only 0 and 1 are valid.
type Unit uint8

const (
	Absent  Unit = 0
	Present Unit = 1
)

// Structure describes how a resource's units are arranged.
type Structure uint8

const (
	Linear Structure = iota
	Cluster
	Node
	Memory
)

var structureNames = [...]string{
	Linear:  "linear",
	Cluster: "cluster",
	Node:    "node",
	Memory:  "memory",
}

// String returns the lowercase structure name.
func (s Structure) String() string {
	if int(s) < len(structureNames) {
		return structureNames[s]
	}
	return fmt.Sprintf("structure(%d)", s)
}

// ParseStructure maps a structure name back to its value.
func ParseStructure(name string) (Structure, bool) {
	for i, n := range structureNames {
		if n == name {
			return Structure(i), true
		}
	}
	return 0, false
}

// Resource is a LUM-group: an ordered collection of presence units.
//
// Target is an optional annotation naming the container a transfer
// was headed to. It does not affect the count.
type Resource struct {
	ID        string
	Units     []Unit
	Structure Structure
	Target    string
}

// MaxCount is the most present units one resource may hold.
const MaxCount int64 = 1 << 24

// CountOverflowError reports a count above MaxCount.
type CountOverflowError struct {
	ID    string
	Count int64
}

func (e *CountOverflowError) Error() string {
	return fmt.Sprintf("lum: %s would hold %d units, limit is %d", e.ID, e.Count, MaxCount)
}

// IsCountOverflow returns true if err wraps a *CountOverflowError.
func IsCountOverflow(err error) bool {
	var ce *CountOverflowError
	return errors.As(err, &ce)
}

// CheckCount returns a *CountOverflowError when count exceeds MaxCount.
func CheckCount(id string, count int64) error {
	if count > MaxCount {
		return &CountOverflowError{ID: id, Count: count}
	}
	return nil
}

// Sum adds counts, reporting a *CountOverflowError for id when the total
// exceeds MaxCount. Each count must be non-negative.
func Sum(id string, counts ...int64) (int64, error) {
	var total int64
	for _, c := range counts {
		if c > MaxCount-total {
			n := int64(math.MaxInt64)
			if c <= math.MaxInt64-total {
				n = total + c
			}
			return 0, &CountOverflowError{ID: id, Count: n}
		}
		total += c
	}
	return total, nil
}

// New returns a resource with count present units.
// A negative count is treated as zero. Callers bound count with CheckCount.
func New(id string, count int64, s Structure) Resource {
	if count < 0 {
		count = 0
	}
	units := make([]Unit, count)
	for i := range units {
		units[i] = Present
	}
	return Resource{ID: id, Units: units, Structure: s}
}

// Count returns the number of present units.
func (r Resource) Count() int64 {
	var n int64
	for _, u := range r.Units {
		if u == Present {
			n++
		}
	}
	return n
}

// Empty reports whether no units are present.
func (r Resource) Empty() bool {
	return r.Count() == 0
}

// Valid reports whether every unit is 0 or 1.
func (r Resource) Valid() bool {
	for _, u := range r.Units {
		if u > Present {
			return false
		}
	}
	return true
}

// WithID returns a copy of r carrying a new identifier.
func (r Resource) WithID(id string) Resource {
	r.ID = id
	r.Units = append([]Unit(nil), r.Units...)
	return r
}

// WithTarget returns a copy of r annotated with a target container.
func (r Resource) WithTarget(target string) Resource {
	r.Target = target
	r.Units = append([]Unit(nil), r.Units...)
	return r
}

func (r Resource) String() string {
	return fmt.Sprintf("%s[%s:%d]", r.ID, r.Structure, r.Count())
}
