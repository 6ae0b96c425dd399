package compiler

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/unx2/internal/machine"
)

// yamlTable is the YAML table file format:
//
//	name: flip
//	description: "..."
//	start: "0"
//	rules:
//	  - {state: 0, read: 0, next: 1, write: 1, move: R}
type yamlTable struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Start       scalar     `yaml:"start,omitempty"`
	Rules       []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	State scalar `yaml:"state"`
	Read  scalar `yaml:"read"`
	Next  scalar `yaml:"next"`
	Write scalar `yaml:"write"`
	Move  scalar `yaml:"move"`

	line int
}

// UnmarshalYAML decodes a rule strictly and records its line.
func (r *yamlRule) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlRule
	var p plain
	if err := decodeStrict(node, &p); err != nil {
		return err
	}
	*r = yamlRule(p)
	r.line = node.Line
	return nil
}

// scalar accepts any YAML scalar (string or number) as its literal text,
// so `state: 0`, `state: "0"` and `move: +1` all decode.
type scalar string

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	*s = scalar(node.Value)
	return nil
}

// decodeStrict re-encodes node and decodes it with unknown fields rejected.
// yaml.Node.Decode does not support KnownFields.
func decodeStrict(node *yaml.Node, out any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

// CompileYAML parses a YAML table definition. file is used in error positions.
func CompileYAML(file string, data []byte) (*machine.Table, error) {
	var doc yamlTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error(), File: file}
	}

	if doc.Name == "" {
		return nil, &CompileError{Field: "name", Message: "name is required", File: file, Line: 1}
	}
	if len(doc.Rules) == 0 {
		return nil, &CompileError{Field: "rules", Message: "at least one rule is required", File: file, Line: 1}
	}

	var opts []machine.TableOption
	if doc.Description != "" {
		opts = append(opts, machine.WithDescription(doc.Description))
	}
	if doc.Start != "" {
		opts = append(opts, machine.WithStart(machine.State(doc.Start)))
	}

	entries := make([]machine.Entry, 0, len(doc.Rules))
	seen := make(map[machine.Key]bool)
	for _, r := range doc.Rules {
		raw := rawRule{
			State: string(r.State),
			Read:  string(r.Read),
			Next:  string(r.Next),
			Write: string(r.Write),
			Move:  string(r.Move),
		}
		entry, field, err := raw.entry()
		if err != nil {
			return nil, &CompileError{Field: "rules." + field, Message: err.Error(), File: file, Line: r.line}
		}
		if seen[entry.Key] {
			return nil, &CompileError{
				Field:   "rules",
				Message: fmt.Sprintf("duplicate rule for (state %s, symbol %s)", entry.State, entry.Symbol),
				File:    file,
				Line:    r.line,
				Err:     &machine.MachineError{Code: machine.ErrCodeDuplicateRule, Message: "duplicate rule", State: entry.State, Symbol: entry.Symbol},
			}
		}
		seen[entry.Key] = true
		entries = append(entries, entry)
	}

	tbl, err := machine.NewTable(doc.Name, entries, opts...)
	if err != nil {
		return nil, &CompileError{Field: "rules", Message: err.Error(), File: file, Err: err}
	}
	return tbl, nil
}
