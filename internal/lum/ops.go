package lum

import (
	"errors"
	"fmt"
)

// ErrNoParts is returned by Split when asked for zero parts.
var ErrNoParts = errors.New("lum: split requires at least one part")

// ErrBadModulus is returned by Reduce for a modulus below one.
var ErrBadModulus = errors.New("lum: modulus must be positive")

// InsufficientUnitsError is returned by Take when the resource holds
// fewer present units than requested.
type InsufficientUnitsError struct {
	ID        string
	Have      int64
	Requested int64
}

func (e *InsufficientUnitsError) Error() string {
	return fmt.Sprintf("lum: %s holds %d units, %d requested", e.ID, e.Have, e.Requested)
}

// Fuse merges the resources into one. The structure of the result is
// Cluster unless exactly one input was given, in which case it is kept.
func Fuse(rs ...Resource) Outcome {
	var total int64
	structure := Cluster
	for _, r := range rs {
		total += r.Count()
	}
	if len(rs) == 1 {
		structure = rs[0].Structure
	}
	return Single(New("", total, structure))
}

// Split divides r into n parts. The first count%n parts receive one extra
// unit, so 5 split 2 gives [3, 2] and 6 split 3 gives [2, 2, 2].
func Split(r Resource, n int) (Outcome, error) {
	if n <= 0 {
		return Outcome{}, ErrNoParts
	}
	counts := Distribute(r.Count(), n)
	parts := make([]Resource, n)
	for i, c := range counts {
		parts[i] = New("", c, r.Structure)
	}
	return Many(parts...), nil
}

// Distribute returns the per-part counts used by Split.
func Distribute(count int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	base := count / int64(n)
	rem := count % int64(n)
	out := make([]int64, n)
	for i := range out {
		out[i] = base
		if int64(i) < rem {
			out[i]++
		}
	}
	return out
}

// Take moves amount units out of r. The outcome is Many{rest, taken}.
func Take(r Resource, amount int64) (Outcome, error) {
	have := r.Count()
	if amount < 0 || amount > have {
		return Outcome{}, &InsufficientUnitsError{ID: r.ID, Have: have, Requested: amount}
	}
	rest := New("", have-amount, r.Structure)
	taken := New("", amount, r.Structure)
	return Many(rest, taken), nil
}

// Reduce replaces r's count with count mod k. It is the only operation
// that changes the number of present units.
func Reduce(r Resource, k int64) (Outcome, error) {
	if k <= 0 {
		return Outcome{}, ErrBadModulus
	}
	return Single(New("", r.Count()%k, r.Structure)), nil
}
