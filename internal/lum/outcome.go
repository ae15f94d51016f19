package lum

// OutcomeKind discriminates the Outcome variants.
type OutcomeKind uint8

const (
	KindSingle OutcomeKind = iota + 1
	KindMany
)

func (k OutcomeKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMany:
		return "many"
	default:
		return "invalid"
	}
}

// Outcome is the result of a group operation: exactly one resource or
// an ordered list of resources.
//
// The zero Outcome is invalid. Build outcomes with Single or Many.
type Outcome struct {
	kind   OutcomeKind
	single Resource
	many   []Resource
}

// Single wraps one resource.
func Single(r Resource) Outcome {
	return Outcome{kind: KindSingle, single: r}
}

// Many wraps an ordered list of resources.
func Many(rs ...Resource) Outcome {
	return Outcome{kind: KindMany, many: rs}
}

// Kind returns the variant tag.
func (o Outcome) Kind() OutcomeKind {
	return o.kind
}

// Single returns the wrapped resource and true for a single outcome.
func (o Outcome) Single() (Resource, bool) {
	if o.kind != KindSingle {
		return Resource{}, false
	}
	return o.single, true
}

// Many returns the wrapped list and true for a many outcome.
func (o Outcome) Many() ([]Resource, bool) {
	if o.kind != KindMany {
		return nil, false
	}
	return o.many, true
}

// Resources flattens the outcome into a slice regardless of variant.
func (o Outcome) Resources() []Resource {
	switch o.kind {
	case KindSingle:
		return []Resource{o.single}
	case KindMany:
		return o.many
	default:
		return nil
	}
}

// Count sums the present units across the outcome.
func (o Outcome) Count() int64 {
	var n int64
	for _, r := range o.Resources() {
		n += r.Count()
	}
	return n
}
