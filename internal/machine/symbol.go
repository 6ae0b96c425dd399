package machine

import (
	"fmt"
	"strings"
)

// Symbol is a tape cell value. The alphabet is fixed: Blank and Mark.
type Symbol uint8

const (
	Blank Symbol = iota
	Mark
)

// String returns the reference encoding: "0" for Blank, "1" for Mark.
func (s Symbol) String() string {
	switch s {
	case Blank:
		return "0"
	case Mark:
		return "1"
	default:
		return fmt.Sprintf("Symbol(%d)", uint8(s))
	}
}

// Valid reports whether s belongs to the alphabet.
func (s Symbol) Valid() bool {
	return s == Blank || s == Mark
}

// ParseSymbol parses "0"/"1" (and the aliases "blank"/"mark").
func ParseSymbol(s string) (Symbol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "blank", "b":
		return Blank, nil
	case "1", "mark", "m":
		return Mark, nil
	}
	return 0, fmt.Errorf("invalid symbol %q: must be 0 or 1", s)
}

// Direction is the head displacement of a rule. Halt is a terminal signal,
// not a movement. The zero value is invalid so that a forgotten field in a
// rule literal is caught at table construction.
type Direction uint8

const (
	Left Direction = iota + 1
	Right
	Halt
)

// String returns the reference encoding: "L", "R" or "STOP".
func (d Direction) String() string {
	switch d {
	case Left:
		return "L"
	case Right:
		return "R"
	case Halt:
		return "STOP"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Valid reports whether d is one of Left, Right or Halt.
func (d Direction) Valid() bool {
	return d == Left || d == Right || d == Halt
}

// Offset returns the head displacement: -1, +1, or 0 for Halt.
func (d Direction) Offset() int {
	switch d {
	case Left:
		return -1
	case Right:
		return 1
	default:
		return 0
	}
}

// ParseDirection accepts R/L/STOP, their long forms, and the numeric
// encoding +1/-1/0. Matching is case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "left", "-1":
		return Left, nil
	case "r", "right", "+1", "1":
		return Right, nil
	case "stop", "halt", "h", "0":
		return Halt, nil
	}
	return 0, fmt.Errorf("invalid direction %q: must be R, L or STOP", s)
}

// State is an opaque machine state label. States are only compared and
// looked up, never computed with.
type State string

// DefaultStartState is the start state of tables that do not name one.
const DefaultStartState State = "0"
