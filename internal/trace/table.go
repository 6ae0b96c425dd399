package trace

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/unx2/internal/machine"
)

// TableDoc is the portable form of a transition table, used for the table
// hash and for storing a run's program next to its trace.
type TableDoc struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Start       string    `json:"start"`
	Rules       []RuleDoc `json:"rules"`
}

// RuleDoc is one table entry in reference encoding ("0"/"1", R/L/STOP).
type RuleDoc struct {
	State string `json:"state"`
	Read  string `json:"read"`
	Next  string `json:"next"`
	Write string `json:"write"`
	Move  string `json:"move"`
}

// DocFromTable converts a table, keeping declaration order.
func DocFromTable(t *machine.Table) TableDoc {
	doc := TableDoc{
		Name:        t.Name(),
		Description: t.Description(),
		Start:       string(t.Start()),
	}
	for _, e := range t.Entries() {
		doc.Rules = append(doc.Rules, RuleDoc{
			State: string(e.State),
			Read:  e.Symbol.String(),
			Next:  string(e.Next),
			Write: e.Write.String(),
			Move:  e.Move.String(),
		})
	}
	return doc
}

// Table rebuilds a machine table from the document.
func (d TableDoc) Table() (*machine.Table, error) {
	entries := make([]machine.Entry, 0, len(d.Rules))
	for i, r := range d.Rules {
		read, err := machine.ParseSymbol(r.Read)
		if err != nil {
			return nil, fmt.Errorf("rule %d read: %w", i, err)
		}
		write, err := machine.ParseSymbol(r.Write)
		if err != nil {
			return nil, fmt.Errorf("rule %d write: %w", i, err)
		}
		move, err := machine.ParseDirection(r.Move)
		if err != nil {
			return nil, fmt.Errorf("rule %d move: %w", i, err)
		}
		entries = append(entries, machine.Entry{
			Key:  machine.Key{State: machine.State(r.State), Symbol: read},
			Rule: machine.Rule{Next: machine.State(r.Next), Write: write, Move: move},
		})
	}

	opts := []machine.TableOption{machine.WithDescription(d.Description)}
	if d.Start != "" {
		opts = append(opts, machine.WithStart(machine.State(d.Start)))
	}
	return machine.NewTable(d.Name, entries, opts...)
}

func (d TableDoc) canonicalMap() map[string]any {
	rules := make([]any, len(d.Rules))
	for i, r := range d.Rules {
		rules[i] = map[string]any{
			"state": r.State,
			"read":  r.Read,
			"next":  r.Next,
			"write": r.Write,
			"move":  r.Move,
		}
	}
	// The description is not part of the program and is left out.
	return map[string]any{
		"name":  d.Name,
		"start": d.Start,
		"rules": rules,
	}
}

// MarshalCanonical returns the canonical JSON of the table program.
func (d TableDoc) MarshalCanonical() ([]byte, error) {
	return MarshalCanonical(d.canonicalMap())
}

// TableHash computes the content hash of a table's program.
func TableHash(t *machine.Table) (string, error) {
	canonical, err := DocFromTable(t).MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("table hash: %w", err)
	}
	return hashWithDomain(DomainTable, canonical), nil
}

// DecodeTableDoc parses a TableDoc from JSON.
func DecodeTableDoc(data []byte) (TableDoc, error) {
	var doc TableDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode table: %w", err)
	}
	return doc, nil
}
