package vm

import (
	"fmt"

	"github.com/lumsvm/vorax/internal/conservation"
	"github.com/lumsvm/vorax/internal/isa"
	"github.com/lumsvm/vorax/internal/lum"
	"github.com/lumsvm/vorax/internal/ownership"
)

// update is the new content of one touched container.
type update struct {
	c   *cell
	res lum.Resource
}

// transition is everything an instruction will change, computed before
// the checker authorizes it.
type transition struct {
	kind    ownership.Op // OpFuse or OpSplit
	updates []update
	check   conservation.Check
}

// dispatch computes the transition for in without touching the machine.
func (e *Engine) dispatch(in isa.Instruction) (transition, error) {
	m := e.machine
	switch i := in.(type) {
	case isa.Fuse:
		dst, src := m.zones[i.Dst], m.zones[i.Src]
		fused, err := merge(dst.name, dst.res, src.res)
		if err != nil {
			return transition{}, err
		}
		return conserving(ownership.OpFuse,
			update{dst, fused},
			update{src, lum.Resource{}},
		), nil

	case isa.Split:
		return e.spread(i.Zone, i.Parts)

	case isa.Expand:
		return e.spread(i.Zone, i.Parts)

	case isa.Move:
		src, dst := m.zones[i.Src], m.zones[i.Dst]
		out, err := lum.Take(src.res, i.Amount)
		if err != nil {
			return transition{}, &isa.InvalidOperand{
				Op:      isa.MOVE,
				Index:   e.pc,
				Operand: "amount",
				Value:   i.Amount,
				Reason:  fmt.Sprintf("zone %s holds %d", src.name, src.count()),
			}
		}
		parts, _ := out.Many()
		rest, taken := parts[0], parts[1]
		moved, err := merge(dst.name, dst.res, taken)
		if err != nil {
			return transition{}, err
		}
		return conserving(ownership.OpSplit,
			update{src, rest},
			update{dst, moved.WithTarget(dst.name)},
		), nil

	case isa.Cycle:
		c := m.zones[i.Zone]
		out, err := lum.Reduce(c.res, i.Modulus)
		if err != nil {
			return transition{}, &isa.InvalidOperand{
				Op: isa.CYCLE, Index: e.pc, Operand: "modulus", Value: i.Modulus, Reason: err.Error(),
			}
		}
		r, _ := out.Single()
		return transition{
			kind:    ownership.OpSplit,
			updates: []update{{c, r}},
			check:   conservation.Evaluate(conservation.Modulo, c.count(), r.Count(), i.Modulus),
		}, nil

	case isa.Store:
		buf, z := m.buffers[i.Buffer], m.zones[i.Zone]
		stored := lum.New("", z.count(), lum.Memory).WithTarget(buf.name)
		return conserving(ownership.OpSplit,
			update{buf, stored},
			update{z, lum.Resource{}},
		), nil

	case isa.Retrieve:
		buf, z := m.buffers[i.Buffer], m.zones[i.Zone]
		loaded := lum.New("", buf.count(), lum.Linear).WithTarget(z.name)
		return conserving(ownership.OpSplit,
			update{z, loaded},
			update{buf, lum.Resource{}},
		), nil

	case isa.Compress:
		first := m.zones[i.Zone]
		merged := first.res
		updates := make([]update, 0, i.Width)
		updates = append(updates, update{first, lum.Resource{}})
		for z := i.Zone + 1; z < i.Zone+i.Width; z++ {
			var err error
			merged, err = merge(first.name, merged, m.zones[z].res)
			if err != nil {
				return transition{}, err
			}
			updates = append(updates, update{m.zones[z], lum.Resource{}})
		}
		updates[0].res = merged
		return conserving(ownership.OpFuse, updates...), nil

	case isa.Halt:
		total := m.snapshot().Total()
		return transition{check: conservation.Evaluate(conservation.None, total, total, 0)}, nil

	default:
		return transition{}, &isa.UnknownOpcode{Op: in.Op(), Index: e.pc}
	}
}

// spread splits a zone over parts consecutive zones starting with itself.
// Each share is added to what the target already holds.
func (e *Engine) spread(zone, parts int) (transition, error) {
	m := e.machine
	src := m.zones[zone]
	out, err := lum.Split(src.res, parts)
	if err != nil {
		return transition{}, &isa.InvalidOperand{
			Op: isa.SPLIT, Index: e.pc, Operand: "parts", Value: int64(parts), Reason: err.Error(),
		}
	}
	shares, _ := out.Many()
	updates := make([]update, len(shares))
	for i, share := range shares {
		target := m.zones[zone+i]
		if i == 0 {
			updates[i] = update{target, share}
			continue
		}
		merged, err := merge(target.name, target.res, share)
		if err != nil {
			return transition{}, err
		}
		updates[i] = update{target, merged}
	}
	return conserving(ownership.OpSplit, updates...), nil
}

// conserving builds a transition checked against the Conserve class over
// the touched containers.
func conserving(kind ownership.Op, updates ...update) transition {
	var before, after int64
	for _, u := range updates {
		before += u.c.count()
		after += u.res.Count()
	}
	return transition{
		kind:    kind,
		updates: updates,
		check:   conservation.Evaluate(conservation.Conserve, before, after, 0),
	}
}

// merge fuses two resources bound for container, keeping the structure of
// a when b is empty.
func merge(container string, a, b lum.Resource) (lum.Resource, error) {
	if _, err := lum.Sum(container, a.Count(), b.Count()); err != nil {
		return lum.Resource{}, err
	}
	if b.Empty() {
		return lum.New("", a.Count(), a.Structure), nil
	}
	if a.Empty() {
		return lum.New("", b.Count(), b.Structure), nil
	}
	r, _ := lum.Fuse(a, b).Single()
	return r, nil
}

// commit asks the checker to authorize tr and then applies it.
//
// Live containers touched by tr are inputs; containers that end up
// non-empty get fresh ids and are outputs. Nothing changes if the
// checker refuses.
func (e *Engine) commit(op isa.OpCode, tr transition) error {
	var inputs, outputs []string
	for _, u := range tr.updates {
		if u.c.live() {
			inputs = append(inputs, u.c.res.ID)
		}
		if !u.res.Empty() {
			outputs = append(outputs, u.c.nextID())
		}
	}

	var kind ownership.Op
	switch {
	case len(inputs) == 0 && len(outputs) == 0:
		return nil
	case len(inputs) == 0:
		kind = ownership.OpCreate
	case len(inputs) == 1 && len(outputs) == 0:
		kind = ownership.OpConsume
	case tr.kind == ownership.OpFuse && len(outputs) == 1:
		kind = ownership.OpFuse
	default:
		kind = ownership.OpSplit
	}
	if err := e.checker.Check(kind, inputs, outputs); err != nil {
		return err
	}

	for _, u := range tr.updates {
		if u.res.Empty() {
			u.c.res = lum.Resource{}
			continue
		}
		id := u.c.nextID()
		u.c.gen++
		u.c.res = u.res.WithID(id)
	}
	e.logger.Debug("resources transferred",
		"event", "commit",
		"run_id", e.runID,
		"op", op.String(),
		"ownership_op", string(kind),
		"inputs", inputs,
		"outputs", outputs,
	)
	return nil
}
