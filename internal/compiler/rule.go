package compiler

import (
	"errors"

	"github.com/roach88/unx2/internal/machine"
)

var errEmpty = errors.New("state label must not be empty")

// rawRule is a rule as written in a source file, before validation.
type rawRule struct {
	State string
	Read  string
	Next  string
	Write string
	Move  string
}

// entry validates the raw fields. On failure it names the offending field.
func (r rawRule) entry() (machine.Entry, string, error) {
	if r.State == "" {
		return machine.Entry{}, "state", errEmpty
	}
	if r.Next == "" {
		return machine.Entry{}, "next", errEmpty
	}
	read, err := machine.ParseSymbol(r.Read)
	if err != nil {
		return machine.Entry{}, "read", err
	}
	write, err := machine.ParseSymbol(r.Write)
	if err != nil {
		return machine.Entry{}, "write", err
	}
	move, err := machine.ParseDirection(r.Move)
	if err != nil {
		return machine.Entry{}, "move", err
	}
	return machine.Entry{
		Key:  machine.Key{State: machine.State(r.State), Symbol: read},
		Rule: machine.Rule{Next: machine.State(r.Next), Write: write, Move: move},
	}, "", nil
}
