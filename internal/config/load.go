package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schema is unified with every configuration file. Definitions are
// closed, so unknown fields are rejected.
const schema = `
#Machine: {
	zones?: [...string]
	buffers?: [...string]
	budget?: int & >0
	costs?: {
		slot?:         int & >=0
		memory?:       int & >=0
		higher_order?: int & >=3
	}
}
`

// Load reads a CUE (or JSON) machine configuration from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes a machine configuration. Fields the file leaves out keep
// their Default values. The result is validated.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Machine"))
	if err := def.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", filename, err)
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", filename, err)
	}

	cfg := Default()
	if err := extractNames(unified, "zones", &cfg.Zones); err != nil {
		return Config{}, err
	}
	if err := extractNames(unified, "buffers", &cfg.Buffers); err != nil {
		return Config{}, err
	}
	for _, f := range []struct {
		path string
		dst  *int64
	}{
		{"budget", &cfg.Budget},
		{"costs.slot", &cfg.Costs.Slot},
		{"costs.memory", &cfg.Costs.Memory},
		{"costs.higher_order", &cfg.Costs.HigherOrder},
	} {
		if err := extractInt(unified, f.path, f.dst); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func extractInt(v cue.Value, path string, dst *int64) error {
	field := v.LookupPath(cue.ParsePath(path))
	if !field.Exists() {
		return nil
	}
	n, err := field.Int64()
	if err != nil {
		return &FieldError{Field: path, Message: err.Error()}
	}
	*dst = n
	return nil
}

func extractNames(v cue.Value, path string, dst *[]string) error {
	field := v.LookupPath(cue.ParsePath(path))
	if !field.Exists() {
		return nil
	}
	iter, err := field.List()
	if err != nil {
		return &FieldError{Field: path, Message: err.Error()}
	}
	names := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return &FieldError{Field: path, Message: err.Error()}
		}
		names = append(names, s)
	}
	*dst = names
	return nil
}
