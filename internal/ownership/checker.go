package ownership

import (
	"log/slog"
	"slices"
)

// TickSource supplies the logical time stamped on lifetimes.
type TickSource interface {
	Current() int64
}

type zeroTicks struct{}

func (zeroTicks) Current() int64 { return 0 }

// Borrow is an open borrow frame.
type Borrow struct {
	ID       string
	Borrower string
	Since    int64
}

// Stats summarizes the table.
type Stats struct {
	Total         int
	Owned         int
	Borrowed      int
	Consumed      int
	ActiveBorrows int
	Tick          int64
}

// Checker is the linear ownership table.
type Checker struct {
	records map[string]*Record
	frames  []Borrow
	ticks   TickSource
	logger  *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger that receives accepted transitions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTicks sets the source used for lifetime stamps.
func WithTicks(ts TickSource) Option {
	return func(c *Checker) {
		if ts != nil {
			c.ticks = ts
		}
	}
}

// New creates an empty checker.
func New(opts ...Option) *Checker {
	c := &Checker{
		records: make(map[string]*Record),
		ticks:   zeroTicks{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create inserts a new Owned record with the given capabilities.
func (c *Checker) Create(id string, caps ...string) error {
	if err := c.validate(OpCreate, nil, []string{id}); err != nil {
		return err
	}
	c.apply(OpCreate, nil, []string{id}, unionCaps(caps))
	return nil
}

// Check authorizes op over inputs and outputs and applies it.
//
//   - create: no inputs, at least one output, outputs must be new.
//   - split: at least one input, outputs inherit the inputs' capabilities.
//   - fuse: at least one input, exactly one output holding the union of
//     the inputs' capabilities.
//   - consume: exactly one input, no outputs.
//
// Inputs must exist and be Owned. On any failure nothing changes.
func (c *Checker) Check(op Op, inputs, outputs []string) error {
	if err := c.validate(op, inputs, outputs); err != nil {
		return err
	}
	var caps []string
	for _, id := range inputs {
		caps = unionCaps(caps, c.records[id].Capabilities)
	}
	c.apply(op, inputs, outputs, caps)
	return nil
}

func (c *Checker) validate(op Op, inputs, outputs []string) error {
	arity := func() error { return &LinearViolation{Op: op, Reason: ReasonArity} }
	switch op {
	case OpCreate:
		if len(inputs) != 0 || len(outputs) == 0 {
			return arity()
		}
	case OpSplit:
		if len(inputs) == 0 {
			return arity()
		}
	case OpFuse:
		if len(inputs) == 0 || len(outputs) != 1 {
			return arity()
		}
	case OpConsume:
		if len(inputs) != 1 || len(outputs) != 0 {
			return arity()
		}
	default:
		return &LinearViolation{Op: op, Reason: ReasonUnknownOp}
	}

	seen := make(map[string]struct{}, len(inputs)+len(outputs))
	for _, id := range inputs {
		if _, dup := seen[id]; dup {
			return &LinearViolation{Op: op, ID: id, Reason: ReasonDuplicate}
		}
		seen[id] = struct{}{}

		rec, ok := c.records[id]
		if !ok {
			return &LinearViolation{Op: op, ID: id, Reason: ReasonNotFound}
		}
		switch rec.State {
		case Consumed:
			return &LinearViolation{Op: op, ID: id, Reason: ReasonConsumed}
		case Borrowed:
			return &LinearViolation{Op: op, ID: id, Reason: ReasonBorrowed, Borrower: rec.Borrower}
		}
	}
	for _, id := range outputs {
		if _, dup := seen[id]; dup {
			return &LinearViolation{Op: op, ID: id, Reason: ReasonDuplicate}
		}
		seen[id] = struct{}{}
		if _, exists := c.records[id]; exists {
			return &LinearViolation{Op: op, ID: id, Reason: ReasonExists}
		}
	}
	return nil
}

func (c *Checker) apply(op Op, inputs, outputs []string, caps []string) {
	tick := c.ticks.Current()
	for _, id := range inputs {
		rec := c.records[id]
		rec.State = Consumed
		rec.LifetimeEnd = tick
		rec.Ended = true
	}
	for _, id := range outputs {
		c.records[id] = &Record{
			ID:            id,
			State:         Owned,
			LifetimeStart: tick,
			Capabilities:  slices.Clone(caps),
		}
	}
	c.logger.Debug("ownership transition",
		"event", "ownership_"+string(op),
		"tick", tick,
		"inputs", inputs,
		"outputs", outputs,
	)
}

// Borrow opens a borrow frame on an Owned resource. A resource carries at
// most one open borrow.
func (c *Checker) Borrow(id, borrower string) error {
	rec, ok := c.records[id]
	if !ok {
		return &LinearViolation{Op: "borrow", ID: id, Reason: ReasonNotFound}
	}
	switch rec.State {
	case Consumed:
		return &LinearViolation{Op: "borrow", ID: id, Reason: ReasonConsumed}
	case Borrowed:
		return &LinearViolation{Op: "borrow", ID: id, Reason: ReasonBorrowed, Borrower: rec.Borrower}
	}
	tick := c.ticks.Current()
	c.frames = append(c.frames, Borrow{ID: id, Borrower: borrower, Since: tick})
	rec.State = Borrowed
	rec.Borrower = borrower
	c.logger.Debug("ownership borrow",
		"event", "ownership_borrow",
		"tick", tick,
		"id", id,
		"borrower", borrower,
		"depth", len(c.frames),
	)
	return nil
}

// ReturnBorrow closes the innermost borrow frame, which must be on id.
func (c *Checker) ReturnBorrow(id string) error {
	if len(c.frames) == 0 {
		return &NoActiveBorrow{ID: id}
	}
	top := c.frames[len(c.frames)-1]
	if top.ID != id {
		return &NoActiveBorrow{ID: id, Top: top.ID}
	}
	c.frames = c.frames[:len(c.frames)-1]

	rec := c.records[id]
	rec.State = Owned
	rec.Borrower = ""
	c.logger.Debug("ownership return",
		"event", "ownership_return",
		"tick", c.ticks.Current(),
		"id", id,
		"depth", len(c.frames),
	)
	return nil
}

// Record returns a copy of the record for id.
func (c *Checker) Record(id string) (Record, bool) {
	rec, ok := c.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Records returns copies of every record ordered by id.
func (c *Checker) Records() []Record {
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec.clone())
	}
	slices.SortFunc(out, func(a, b Record) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Stats counts records per state.
func (c *Checker) Stats() Stats {
	s := Stats{
		Total:         len(c.records),
		ActiveBorrows: len(c.frames),
		Tick:          c.ticks.Current(),
	}
	for _, rec := range c.records {
		switch rec.State {
		case Owned:
			s.Owned++
		case Borrowed:
			s.Borrowed++
		case Consumed:
			s.Consumed++
		}
	}
	return s
}

// Leaks returns open borrow frames, outermost first.
func (c *Checker) Leaks() []Borrow {
	return slices.Clone(c.frames)
}

// Reset clears every record and borrow frame.
func (c *Checker) Reset() {
	c.records = make(map[string]*Record)
	c.frames = nil
}
