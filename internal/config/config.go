// Package config holds the machine configuration: container names, the
// energy budget and instruction costs. Configurations are written in CUE
// and checked against a closed schema before they are used.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lumsvm/vorax/internal/ir"
	"github.com/lumsvm/vorax/internal/isa"
	"github.com/lumsvm/vorax/internal/vm"
)

// Costs is the energy charged per instruction class.
type Costs struct {
	Slot        int64 `yaml:"slot" json:"slot"`
	Memory      int64 `yaml:"memory" json:"memory"`
	HigherOrder int64 `yaml:"higher_order" json:"higher_order"`
}

// Config describes one machine.
type Config struct {
	Zones   []string
	Buffers []string
	Budget  int64
	Costs   Costs
}

// Default returns zones A-D, buffers buf and cache, budget 1000 and
// costs 1/2/3.
func Default() Config {
	c := isa.DefaultCosts()
	return Config{
		Zones:   slices.Clone(vm.DefaultZones),
		Buffers: slices.Clone(vm.DefaultBuffers),
		Budget:  vm.DefaultBudget,
		Costs:   Costs{Slot: c.Slot, Memory: c.Memory, HigherOrder: c.HigherOrder},
	}
}

// FieldError reports one invalid configuration field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Validate checks names and numbers. All problems are joined.
func (c Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, &FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Zones) == 0 {
		bad("zones", "at least one zone is required")
	}
	seen := make(map[string]string)
	check := func(field string, names []string) {
		for _, n := range names {
			if n == "" {
				bad(field, "names must not be empty")
				continue
			}
			if prev, dup := seen[n]; dup {
				bad(field, "name %q already used in %s", n, prev)
				continue
			}
			seen[n] = field
		}
	}
	check("zones", c.Zones)
	check("buffers", c.Buffers)

	if c.Budget <= 0 {
		bad("budget", "must be positive, got %d", c.Budget)
	}
	if c.Costs.Slot < 0 {
		bad("costs.slot", "must not be negative, got %d", c.Costs.Slot)
	}
	if c.Costs.Memory < 0 {
		bad("costs.memory", "must not be negative, got %d", c.Costs.Memory)
	}
	if c.Costs.HigherOrder < isa.DefaultHigherOrderCost {
		bad("costs.higher_order", "must be at least %d, got %d", isa.DefaultHigherOrderCost, c.Costs.HigherOrder)
	}
	return errors.Join(errs...)
}

// Layout returns the program layout for this machine.
func (c Config) Layout() isa.Layout {
	return isa.Layout{Zones: len(c.Zones), Buffers: len(c.Buffers)}
}

// CostTable converts the costs for the engine.
func (c Config) CostTable() isa.CostTable {
	return isa.CostTable{Slot: c.Costs.Slot, Memory: c.Costs.Memory, HigherOrder: c.Costs.HigherOrder}
}

// Options returns the engine options that build this machine.
func (c Config) Options() []vm.Option {
	return []vm.Option{
		vm.WithZones(c.Zones...),
		vm.WithBuffers(c.Buffers...),
		vm.WithBudget(c.Budget),
		vm.WithCosts(c.CostTable()),
	}
}

// Value returns the canonical form stored alongside runs.
func (c Config) Value() ir.Object {
	return ir.Object{
		"zones":   ir.Strings(c.Zones),
		"buffers": ir.Strings(c.Buffers),
		"budget":  ir.Int(c.Budget),
		"costs": ir.Object{
			"slot":         ir.Int(c.Costs.Slot),
			"memory":       ir.Int(c.Costs.Memory),
			"higher_order": ir.Int(c.Costs.HigherOrder),
		},
	}
}

// Overrides replaces selected fields of a configuration. Nil and empty
// fields leave the base value alone.
type Overrides struct {
	Zones   []string `yaml:"zones,omitempty"`
	Buffers []string `yaml:"buffers,omitempty"`
	Budget  *int64   `yaml:"budget,omitempty"`
	Costs   *Costs   `yaml:"costs,omitempty"`
}

// Apply returns c with o applied.
func (c Config) Apply(o Overrides) Config {
	out := Config{
		Zones:   slices.Clone(c.Zones),
		Buffers: slices.Clone(c.Buffers),
		Budget:  c.Budget,
		Costs:   c.Costs,
	}
	if len(o.Zones) > 0 {
		out.Zones = slices.Clone(o.Zones)
	}
	if o.Buffers != nil {
		out.Buffers = slices.Clone(o.Buffers)
	}
	if o.Budget != nil {
		out.Budget = *o.Budget
	}
	if o.Costs != nil {
		out.Costs = *o.Costs
	}
	return out
}
