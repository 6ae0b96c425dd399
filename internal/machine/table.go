package machine

import "fmt"

// Key identifies a rule: the current state and the symbol under the head.
type Key struct {
	State  State
	Symbol Symbol
}

// Rule is the action taken for a Key: enter Next, write Write, move Move.
type Rule struct {
	Next  State
	Write Symbol
	Move  Direction
}

// Entry is one (state, symbol) -> rule line of a table definition.
type Entry struct {
	Key
	Rule
}

// String renders the entry as "(0, 1) -> (1, 0, R)".
func (e Entry) String() string {
	return fmt.Sprintf("(%s, %s) -> (%s, %s, %s)", e.State, e.Symbol, e.Next, e.Write, e.Move)
}

// Table is an immutable transition table.
//
// INVARIANTS:
//   - at most one rule per (state, symbol)
//   - every rule has a valid write symbol and direction
//   - the entry order given to NewTable never changes
type Table struct {
	name        string
	description string
	start       State
	rules       map[Key]Rule
	entries     []Entry
}

// TableOption configures optional table metadata.
type TableOption func(*Table)

// WithDescription attaches a human-readable description.
func WithDescription(desc string) TableOption {
	return func(t *Table) {
		t.description = desc
	}
}

// WithStart sets the start state. Default: DefaultStartState.
func WithStart(s State) TableOption {
	return func(t *Table) {
		t.start = s
	}
}

// NewTable builds a table from entries in declaration order.
//
// Returns a DUPLICATE_RULE error if two entries share a key, and an
// INVALID_RULE error for an entry whose symbols or direction are outside
// the alphabet. The entries slice is copied.
func NewTable(name string, entries []Entry, opts ...TableOption) (*Table, error) {
	t := &Table{
		name:    name,
		start:   DefaultStartState,
		rules:   make(map[Key]Rule, len(entries)),
		entries: make([]Entry, 0, len(entries)),
	}
	for _, opt := range opts {
		opt(t)
	}

	for i, e := range entries {
		if !e.Symbol.Valid() {
			return nil, newInvalidRuleError(i, fmt.Sprintf("read symbol %s is not in the alphabet", e.Symbol))
		}
		if !e.Write.Valid() {
			return nil, newInvalidRuleError(i, fmt.Sprintf("write symbol %s is not in the alphabet", e.Write))
		}
		if !e.Move.Valid() {
			return nil, newInvalidRuleError(i, fmt.Sprintf("direction %s is not R, L or STOP", e.Move))
		}
		if _, dup := t.rules[e.Key]; dup {
			return nil, newDuplicateRuleError(e.Key)
		}
		t.rules[e.Key] = e.Rule
		t.entries = append(t.entries, e)
	}

	return t, nil
}

// MustTable is like NewTable but panics on error.
// Use only for tables known to be valid at compile time.
func MustTable(name string, entries []Entry, opts ...TableOption) *Table {
	t, err := NewTable(name, entries, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the rule for (state, symbol), or a MISSING_TRANSITION error.
// Pure and deterministic.
func (t *Table) Lookup(state State, symbol Symbol) (Rule, error) {
	r, ok := t.rules[Key{State: state, Symbol: symbol}]
	if !ok {
		return Rule{}, &MachineError{
			Code:    ErrCodeMissingTransition,
			Message: "no rule for current state and symbol",
			State:   state,
			Symbol:  symbol,
		}
	}
	return r, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Description returns the table description, possibly empty.
func (t *Table) Description() string { return t.description }

// Start returns the start state.
func (t *Table) Start() State { return t.start }

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the rules in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// States returns every state that appears in the table, as a key or as a
// next state, in order of first appearance. The start state comes first.
func (t *Table) States() []State {
	seen := map[State]bool{t.start: true}
	states := []State{t.start}
	add := func(s State) {
		if !seen[s] {
			seen[s] = true
			states = append(states, s)
		}
	}
	for _, e := range t.entries {
		add(e.State)
		add(e.Next)
	}
	return states
}
