// Package render formats machine configurations for the console.
//
// The layout is the classic UNx2 trace: the cell under the head is
// bracketed by bars, the other cells are space-separated, and the state
// is printed after the tape.
//
//	..... |0|0 0 1 0 0 0  ..... 	[ state: 0 ]
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/unx2/internal/machine"
)

// Tape renders tape with the head bracketed.
//
// A space is added on the left when the head is not on the first cell and
// on the right when it is not on the last cell.
func Tape(tape machine.Tape, head int) string {
	cells := tape.Strings()
	var b strings.Builder
	if head != 0 {
		b.WriteByte(' ')
	}
	b.WriteString(strings.Join(cells[:head], " "))
	b.WriteByte('|')
	b.WriteString(cells[head])
	b.WriteByte('|')
	b.WriteString(strings.Join(cells[head+1:], " "))
	if (head+1)%len(cells) != 0 {
		b.WriteByte(' ')
	}
	return b.String()
}

// Line renders one configuration, without the trailing newline.
func Line(c machine.Configuration) string {
	return fmt.Sprintf("..... %s ..... \t[ state: %s ]", Tape(c.Tape, c.Head), c.State)
}

// WriteConfiguration writes a configuration line followed by a blank line.
func WriteConfiguration(w io.Writer, c machine.Configuration) error {
	_, err := fmt.Fprintf(w, "%s\n\n", Line(c))
	return err
}

// WriteStartBanner writes the banner printed before the initial configuration.
func WriteStartBanner(w io.Writer) error {
	stars := strings.Repeat("*", 30)
	_, err := fmt.Fprintf(w, "\n%s\n* Turing machine starting... *\n%s\n\n", stars, stars)
	return err
}

// WriteEndBanner writes the banner printed after the halting configuration.
func WriteEndBanner(w io.Writer, steps int) error {
	stars := strings.Repeat("*", 25)
	_, err := fmt.Fprintf(w, "\n%s\n* Turing machine ended! *   (# steps: %d)\n%s\n\n", stars, steps, stars)
	return err
}

// Result renders the final count: "Counting the number of 1s to the left of the tape: 3x2=6".
func Result(n, marks int) string {
	return fmt.Sprintf("Counting the number of 1s to the left of the tape: %dx2=%d", n, marks)
}
