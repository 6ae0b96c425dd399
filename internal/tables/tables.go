// Package tables provides the two reference programs for doubling a unary
// integer: the one from Penrose's "The Emperor's New Mind" and menda's
// alternative. Both start in state 0 with the head on cell 0 of a tape
// built by machine.NewUnaryTape, and both halt with 2n marks on the tape.
package tables

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/unx2/internal/machine"
)

// Built-in table names.
const (
	PenroseName = "penrose"
	MendaName   = "menda"
)

const (
	blank = machine.Blank
	mark  = machine.Mark
	right = machine.Right
	left  = machine.Left
	stop  = machine.Halt
)

func rule(state machine.State, read machine.Symbol, next machine.State, write machine.Symbol, move machine.Direction) machine.Entry {
	return machine.Entry{
		Key:  machine.Key{State: state, Symbol: read},
		Rule: machine.Rule{Next: next, Write: write, Move: move},
	}
}

var penrose = machine.MustTable(PenroseName, []machine.Entry{
	rule("0", blank, "0", blank, right),
	rule("0", mark, "1", blank, right),
	rule("1", blank, "2", mark, left),
	rule("1", mark, "1", mark, right),
	rule("2", blank, "3", blank, right),
	rule("2", mark, "4", blank, right),
	rule("3", blank, "0", mark, stop),
	rule("3", mark, "3", mark, right),
	rule("4", blank, "5", mark, left),
	rule("4", mark, "4", mark, right),
	rule("5", blank, "2", mark, left),
	rule("5", mark, "5", mark, left),
}, machine.WithDescription("Penrose, The Emperor's New Mind: UN x 2"))

// menda's table has no rule for (1, 1): state 1 is only ever entered on a
// blank cell for valid unary input.
var menda = machine.MustTable(MendaName, []machine.Entry{
	rule("0", blank, "0", blank, right),
	rule("0", mark, "1", blank, left),
	rule("1", blank, "2", mark, left),
	rule("2", blank, "3", mark, left),
	rule("2", mark, "2", mark, left),
	rule("3", blank, "3", blank, right),
	rule("3", mark, "4", mark, right),
	rule("4", blank, "5", blank, right),
	rule("4", mark, "4", mark, right),
	rule("5", blank, "0", blank, stop),
	rule("5", mark, "1", blank, left),
}, machine.WithDescription("menda's UN x 2"))

// Penrose returns the Penrose doubling table.
func Penrose() *machine.Table { return penrose }

// Menda returns menda's doubling table.
func Menda() *machine.Table { return menda }

var builtin = map[string]*machine.Table{
	PenroseName: penrose,
	MendaName:   menda,
}

// Lookup returns the built-in table with the given name.
func Lookup(name string) (*machine.Table, bool) {
	t, ok := builtin[name]
	return t, ok
}

// Names returns the built-in table names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the built-in tables in Names order.
func All() []*machine.Table {
	names := Names()
	out := make([]*machine.Table, len(names))
	for i, name := range names {
		out[i] = builtin[name]
	}
	return out
}

// Choose resolves an answer to the interactive prompt, which offers only
// P and m. Matching is case-insensitive.
func Choose(answer string) (*machine.Table, bool) {
	switch cases.Fold().String(strings.TrimSpace(answer)) {
	case "p":
		return penrose, true
	case "m":
		return menda, true
	}
	return nil, false
}

// Select resolves a --table or config value: P/m as Choose does, or a full
// table name. Matching is case-insensitive.
func Select(choice string) (*machine.Table, error) {
	if t, ok := Choose(choice); ok {
		return t, nil
	}
	if t, ok := builtin[cases.Fold().String(strings.TrimSpace(choice))]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown algorithm %q: choose P (Penrose) or m (menda)", choice)
}
