package vm

import (
	"fmt"
	"slices"

	"github.com/lumsvm/vorax/internal/ir"
	"github.com/lumsvm/vorax/internal/lum"
)

// Default machine shape.
var (
	DefaultZones   = []string{"A", "B", "C", "D"}
	DefaultBuffers = []string{"buf", "cache"}
)

type cellKind uint8

const (
	zoneCell cellKind = iota
	bufferCell
)

// cell is one named container. A container is live when it holds at
// least one present unit; only live containers have an ownership record.
type cell struct {
	kind cellKind
	name string
	res  lum.Resource
	gen  int
}

func (c *cell) count() int64 {
	return c.res.Count()
}

func (c *cell) live() bool {
	return c.count() > 0
}

// nextID names the resource the container will hold after its next change.
func (c *cell) nextID() string {
	prefix := "zone"
	if c.kind == bufferCell {
		prefix = "mem"
	}
	return fmt.Sprintf("%s:%s#%d", prefix, c.name, c.gen+1)
}

func (c *cell) capability() string {
	if c.kind == bufferCell {
		return "mem:" + c.name
	}
	return "zone:" + c.name
}

// machine is the fixed table of zones and buffers.
type machine struct {
	zones   []*cell
	buffers []*cell
}

func newMachine(zones, buffers []string) *machine {
	m := &machine{
		zones:   make([]*cell, len(zones)),
		buffers: make([]*cell, len(buffers)),
	}
	for i, name := range zones {
		m.zones[i] = &cell{kind: zoneCell, name: name}
	}
	for i, name := range buffers {
		m.buffers[i] = &cell{kind: bufferCell, name: name}
	}
	return m
}

func (m *machine) clear() {
	for _, c := range m.zones {
		*c = cell{kind: zoneCell, name: c.name}
	}
	for _, c := range m.buffers {
		*c = cell{kind: bufferCell, name: c.name}
	}
}

func (m *machine) lookup(name string) (*cell, bool) {
	for _, c := range m.zones {
		if c.name == name {
			return c, true
		}
	}
	for _, c := range m.buffers {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

func (m *machine) zoneIndex(name string) (int, bool) {
	for i, c := range m.zones {
		if c.name == name {
			return i, true
		}
	}
	return -1, false
}

func (m *machine) snapshot() Snapshot {
	s := Snapshot{
		Zones:   make([]int64, len(m.zones)),
		Buffers: make([]int64, len(m.buffers)),
	}
	for i, c := range m.zones {
		s.Zones[i] = c.count()
	}
	for i, c := range m.buffers {
		s.Buffers[i] = c.count()
	}
	return s
}

// Snapshot is the unit count of every container, in layout order.
type Snapshot struct {
	Zones   []int64
	Buffers []int64
}

// Total sums every container.
func (s Snapshot) Total() int64 {
	var n int64
	for _, v := range s.Zones {
		n += v
	}
	for _, v := range s.Buffers {
		n += v
	}
	return n
}

// Equal reports whether two snapshots hold the same counts.
func (s Snapshot) Equal(o Snapshot) bool {
	return slices.Equal(s.Zones, o.Zones) && slices.Equal(s.Buffers, o.Buffers)
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Zones: slices.Clone(s.Zones), Buffers: slices.Clone(s.Buffers)}
}

func (s Snapshot) toValue() ir.Object {
	return ir.Object{
		"zones":   ir.Ints(s.Zones),
		"buffers": ir.Ints(s.Buffers),
	}
}

// Named pairs container names with counts.
func (s Snapshot) Named(zones, buffers []string) map[string]int64 {
	out := make(map[string]int64, len(zones)+len(buffers))
	for i, name := range zones {
		if i < len(s.Zones) {
			out[name] = s.Zones[i]
		}
	}
	for i, name := range buffers {
		if i < len(s.Buffers) {
			out[name] = s.Buffers[i]
		}
	}
	return out
}
