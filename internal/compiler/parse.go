package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// programSchema is unified with CUE documents before they are decoded.
const programSchema = `
#Document: {
	name: string
	seeds?: [string]: int & >=0
	program: [...{
		op: string
		args?: [...(string | int)]
	}]
}
`

// LoadFile reads a document, choosing the decoder by extension:
// .yaml/.yml, .cue or .json.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, path)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("program %s: unsupported extension %q", path, filepath.Ext(path))
	}
}

// ParseYAML decodes a YAML document. Unknown fields are rejected.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse program yaml: %w", err)
	}
	if err := checkDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseJSON decodes a JSON document, such as the canonical form stored
// with a run. Unknown fields are rejected.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse program json: %w", err)
	}
	if err := checkDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseCUE decodes a CUE document after checking it against the
// document schema.
func ParseCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	def := ctx.CompileString(programSchema).LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("compile program schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	raw, err := unified.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return ParseJSON(raw)
}

func checkDocument(doc *Document) error {
	if doc.Name == "" {
		return &CompileError{Step: -1, Field: "name", Message: "name is required"}
	}
	for i, s := range doc.Program {
		if s.Op == "" {
			return &CompileError{Step: i, Field: "op", Message: "op is required"}
		}
	}
	return nil
}
