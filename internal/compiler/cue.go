package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/roach88/unx2/internal/machine"
)

// CompileTable parses a CUE value into a transition table.
// The table name is the value's struct label.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: flip: { rules: [...] }`)
//	tbl, err := CompileTable(v.LookupPath(cue.ParsePath("table.flip")))
//
// Rule fields state and next accept strings or integers; read and write
// accept "0"/"1" or 0/1; move accepts R/L/STOP or +1/-1/0.
func CompileTable(v cue.Value) (*machine.Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var name string
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		name = labels[len(labels)-1].String()
		if unquoted, err := strconv.Unquote(name); err == nil {
			name = unquoted
		}
	}

	var opts []machine.TableOption

	if descVal := v.LookupPath(cue.ParsePath("description")); descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		opts = append(opts, machine.WithDescription(desc))
	}

	if startVal := v.LookupPath(cue.ParsePath("start")); startVal.Exists() {
		start, err := cueLabel(startVal)
		if err != nil {
			return nil, err
		}
		opts = append(opts, machine.WithStart(machine.State(start)))
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{
			Field:   "rules",
			Message: "rules are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var entries []machine.Entry
	seen := make(map[machine.Key]bool)
	for iter.Next() {
		ruleVal := iter.Value()
		entry, err := compileCUERule(ruleVal)
		if err != nil {
			return nil, err
		}
		if seen[entry.Key] {
			return nil, &CompileError{
				Field:   "rules",
				Message: fmt.Sprintf("duplicate rule for (state %s, symbol %s)", entry.State, entry.Symbol),
				Pos:     ruleVal.Pos(),
				Err:     &machine.MachineError{Code: machine.ErrCodeDuplicateRule, Message: "duplicate rule", State: entry.State, Symbol: entry.Symbol},
			}
		}
		seen[entry.Key] = true
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, &CompileError{
			Field:   "rules",
			Message: "at least one rule is required",
			Pos:     rulesVal.Pos(),
		}
	}

	tbl, err := machine.NewTable(name, entries, opts...)
	if err != nil {
		return nil, &CompileError{Field: "rules", Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return tbl, nil
}

func compileCUERule(v cue.Value) (machine.Entry, error) {
	var raw rawRule
	fields := []struct {
		name string
		dst  *string
	}{
		{"state", &raw.State},
		{"read", &raw.Read},
		{"next", &raw.Next},
		{"write", &raw.Write},
		{"move", &raw.Move},
	}
	for _, f := range fields {
		fv := v.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			return machine.Entry{}, &CompileError{
				Field:   "rules." + f.name,
				Message: f.name + " is required",
				Pos:     v.Pos(),
			}
		}
		s, err := cueLabel(fv)
		if err != nil {
			return machine.Entry{}, err
		}
		*f.dst = s
	}

	entry, field, err := raw.entry()
	if err != nil {
		return machine.Entry{}, &CompileError{
			Field:   "rules." + field,
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath(field)).Pos(),
		}
	}
	return entry, nil
}

// cueLabel reads a concrete string or integer as a string.
func cueLabel(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return "", formatCUEError(err)
		}
		return strconv.FormatInt(n, 10), nil
	}
	return "", &CompileError{
		Field:   "type",
		Message: fmt.Sprintf("expected string or int, got %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}
