package machine

import (
	"fmt"
	"strings"
)

// Tape is a fixed-length sequence of symbols, indexed from 0.
type Tape []Symbol

// UnaryPadding is the number of blank cells on each side of the marks,
// beyond n itself, in a unary input tape.
const UnaryPadding = 2

// MaxUnaryInput is the largest n NewUnaryTape accepts. Its tape has
// 3*MaxUnaryInput+4 cells.
const MaxUnaryInput = 1 << 20

// NewUnaryTape builds the input tape for n: (n+2) blanks, n marks, (n+2) blanks.
// The padding is wide enough for both reference tables on every positive n.
func NewUnaryTape(n int) (Tape, error) {
	if n <= 0 {
		return nil, fmt.Errorf("unary input must be a positive integer, got %d", n)
	}
	if n > MaxUnaryInput {
		return nil, fmt.Errorf("unary input %d exceeds the maximum of %d", n, MaxUnaryInput)
	}
	pad := n + UnaryPadding
	t := make(Tape, 0, 2*pad+n)
	for i := 0; i < pad; i++ {
		t = append(t, Blank)
	}
	for i := 0; i < n; i++ {
		t = append(t, Mark)
	}
	for i := 0; i < pad; i++ {
		t = append(t, Blank)
	}
	return t, nil
}

// ParseTape parses the compact form produced by Tape.String, e.g. "0001000".
func ParseTape(s string) (Tape, error) {
	t := make(Tape, 0, len(s))
	for i, r := range s {
		sym, err := ParseSymbol(string(r))
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		t = append(t, sym)
	}
	return t, nil
}

// Clone returns an independent copy of t.
func (t Tape) Clone() Tape {
	if t == nil {
		return nil
	}
	out := make(Tape, len(t))
	copy(out, t)
	return out
}

// Count returns the number of cells holding sym.
func (t Tape) Count(sym Symbol) int {
	n := 0
	for _, s := range t {
		if s == sym {
			n++
		}
	}
	return n
}

// Strings returns each cell's encoding.
func (t Tape) Strings() []string {
	out := make([]string, len(t))
	for i, s := range t {
		out[i] = s.String()
	}
	return out
}

// String returns the compact form, one character per cell.
func (t Tape) String() string {
	var b strings.Builder
	b.Grow(len(t))
	for _, s := range t {
		b.WriteString(s.String())
	}
	return b.String()
}
