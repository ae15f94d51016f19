package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lumsvm/vorax/internal/ir"
)

// Document is a parsed program document.
type Document struct {
	Name    string           `yaml:"name" json:"name"`
	Seeds   map[string]int64 `yaml:"seeds,omitempty" json:"seeds,omitempty"`
	Program []Step           `yaml:"program" json:"program"`
}

// Step is one instruction in a document.
type Step struct {
	Op   string `yaml:"op" json:"op"`
	Args []Arg  `yaml:"args,omitempty" json:"args,omitempty"`
}

// Arg is an operand: a container name or an integer.
type Arg struct {
	Name   string
	Num    int64
	IsName bool
}

// Named returns a name operand.
func Named(name string) Arg { return Arg{Name: name, IsName: true} }

// Num returns an integer operand.
func Num(n int64) Arg { return Arg{Num: n} }

func (a Arg) String() string {
	if a.IsName {
		return a.Name
	}
	return strconv.FormatInt(a.Num, 10)
}

// UnmarshalYAML accepts integer and string scalars.
func (a *Arg) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: operand must be a name or an integer", node.Line)
	}
	switch node.Tag {
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*a = Num(n)
	case "!!str":
		*a = Named(node.Value)
	default:
		return fmt.Errorf("line %d: operand %q must be a name or an integer", node.Line, node.Value)
	}
	return nil
}

// UnmarshalJSON accepts JSON strings and integers. Fractions are rejected.
func (a *Arg) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Named(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("operand %s must be a name or an integer", data)
	}
	*a = Num(n)
	return nil
}

// MarshalJSON writes names as strings and numbers as integers.
func (a Arg) MarshalJSON() ([]byte, error) {
	if a.IsName {
		return json.Marshal(a.Name)
	}
	return []byte(strconv.FormatInt(a.Num, 10)), nil
}

func (a Arg) value() ir.Value {
	if a.IsName {
		return ir.String(a.Name)
	}
	return ir.Int(a.Num)
}

// Value returns the canonical form of the document. Seeds with a zero
// count are kept, so the hash reflects exactly what was written.
func (d Document) Value() ir.Object {
	seeds := ir.Object{}
	for name, n := range d.Seeds {
		seeds[name] = ir.Int(n)
	}
	steps := make(ir.Array, len(d.Program))
	for i, s := range d.Program {
		args := make(ir.Array, len(s.Args))
		for j, a := range s.Args {
			args[j] = a.value()
		}
		steps[i] = ir.Object{"op": ir.String(s.Op), "args": args}
	}
	return ir.Object{
		"name":    ir.String(d.Name),
		"seeds":   seeds,
		"program": steps,
	}
}

// Canonical returns the canonical JSON encoding of the document.
func (d Document) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(d.Value())
}

// Hash returns the program hash of the document.
func (d Document) Hash() (string, error) {
	return ir.ProgramHash(d.Value())
}
