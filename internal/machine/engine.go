package machine

import (
	"iter"
	"log/slog"
)

// Configuration is a snapshot of the machine between steps.
// Tape is a copy; holding a Configuration never aliases engine memory.
type Configuration struct {
	Step  int
	State State
	Head  int
	Tape  Tape
}

// Symbol returns the symbol under the head.
func (c Configuration) Symbol() Symbol {
	return c.Tape[c.Head]
}

// Engine executes a Table against a tape.
//
// Thread-safety model: an Engine is owned by one caller for one run and is
// not safe for concurrent use. Independent engines share nothing but the
// read-only Table.
type Engine struct {
	table    *Table
	tape     Tape
	head     int
	state    State
	steps    int
	halted   bool
	err      error
	started  bool
	maxSteps int

	startState    State
	startPosition int
}

// Option configures an Engine.
type Option func(*Engine)

// WithStartState overrides the table's start state.
func WithStartState(s State) Option {
	return func(e *Engine) {
		e.startState = s
	}
}

// WithStartPosition sets the initial head position. Default: 0.
func WithStartPosition(pos int) Option {
	return func(e *Engine) {
		e.startPosition = pos
	}
}

// WithMaxSteps bounds the number of steps a run may take.
// Zero (the default) means unlimited.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// New creates an Engine for table over a copy of tape.
//
// Fails with INVALID_TAPE if tape is empty and TAPE_OVERRUN if the start
// position is outside the tape.
func New(tape Tape, table *Table, opts ...Option) (*Engine, error) {
	if len(tape) == 0 {
		return nil, &MachineError{Code: ErrCodeInvalidTape, Message: "tape is empty"}
	}

	e := &Engine{
		table:      table,
		tape:       tape.Clone(),
		startState: table.Start(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.startPosition < 0 || e.startPosition >= len(e.tape) {
		return nil, &MachineError{
			Code:    ErrCodeTapeOverrun,
			Message: "start position outside the tape",
			State:   e.startState,
			Head:    e.startPosition,
		}
	}

	e.head = e.startPosition
	e.state = e.startState
	return e, nil
}

// Step applies one rule and returns the resulting configuration.
//
// Order: lookup, bounds check, then write, state change and move. If the
// lookup fails or the move would overrun the tape, nothing is mutated and
// the engine stays failed: later calls return the same error. After a Halt
// rule has been applied, Step returns ErrHalted.
func (e *Engine) Step() (Configuration, error) {
	if e.err != nil {
		return e.Configuration(), e.err
	}
	if e.halted {
		return e.Configuration(), ErrHalted
	}

	if e.maxSteps > 0 && e.steps >= e.maxSteps {
		return e.fail(ErrCodeStepLimit, "step limit reached")
	}

	rule, err := e.table.Lookup(e.state, e.tape[e.head])
	if err != nil {
		return e.fail(ErrCodeMissingTransition, "no rule for current state and symbol")
	}

	next := e.head + rule.Move.Offset()
	if next < 0 || next >= len(e.tape) {
		return e.fail(ErrCodeTapeOverrun, "move would leave the tape")
	}

	e.tape[e.head] = rule.Write
	e.state = rule.Next
	e.head = next
	e.steps++
	if rule.Move == Halt {
		e.halted = true
	}

	slog.Debug("machine step",
		"table", e.table.Name(),
		"step", e.steps,
		"state", e.state,
		"head", e.head,
		"move", rule.Move.String(),
	)

	return e.Configuration(), nil
}

// fail records a terminal execution error for the current configuration.
func (e *Engine) fail(code ErrorCode, msg string) (Configuration, error) {
	e.err = &MachineError{
		Code:    code,
		Message: msg,
		State:   e.state,
		Symbol:  e.tape[e.head],
		Head:    e.head,
		Step:    e.steps,
	}
	slog.Debug("machine failed", "table", e.table.Name(), "err", e.err)
	return e.Configuration(), e.err
}

// Run returns the lazy configuration sequence: the initial configuration,
// then one per step, ending after the Halt step.
//
// On failure the sequence yields the (unchanged) failing configuration with
// the error and stops. Consumers may break out at any point; the engine
// remains inspectable. The sequence is not restartable: a second call to
// Run yields ErrRunStarted.
func (e *Engine) Run() iter.Seq2[Configuration, error] {
	return func(yield func(Configuration, error) bool) {
		if e.started {
			yield(e.Configuration(), ErrRunStarted)
			return
		}
		e.started = true

		if !yield(e.Configuration(), nil) {
			return
		}
		for !e.halted {
			c, err := e.Step()
			if !yield(c, err) || err != nil {
				return
			}
		}
	}
}

// RunToHalt drains Run and returns the final configuration.
func (e *Engine) RunToHalt() (Configuration, error) {
	var last Configuration
	for c, err := range e.Run() {
		if err != nil {
			return c, err
		}
		last = c
	}
	return last, nil
}

// Configuration returns a snapshot of the current configuration.
func (e *Engine) Configuration() Configuration {
	return Configuration{
		Step:  e.steps,
		State: e.state,
		Head:  e.head,
		Tape:  e.tape.Clone(),
	}
}

// Table returns the table the engine executes.
func (e *Engine) Table() *Table { return e.table }

// Tape returns a copy of the current tape.
func (e *Engine) Tape() Tape { return e.tape.Clone() }

// Head returns the head position.
func (e *Engine) Head() int { return e.head }

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Steps returns the number of rules applied so far.
func (e *Engine) Steps() int { return e.steps }

// Halted reports whether a Halt rule has been applied.
func (e *Engine) Halted() bool { return e.halted }

// Err returns the execution error that stopped the engine, if any.
func (e *Engine) Err() error { return e.err }
