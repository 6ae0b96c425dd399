// Package machine implements a single-tape deterministic Turing machine.
//
// A Table is the machine's program: an immutable mapping from
// (state, symbol read) to (next state, symbol to write, move). An Engine
// owns the mutable execution state (tape, head, current state, step
// counter) and borrows a Table read-only.
//
// Execution Model:
//
// Configurations C0, C1, C2, ... are derived one table lookup at a time.
// Run yields C0 before any step, then one configuration per step, and ends
// the sequence after the step whose rule moves Halt. That rule's write and
// state change still apply. There is no accept/reject distinction, only
// halted, running, or failed.
//
// Failures:
//
//   - DUPLICATE_RULE: two table entries share a (state, symbol) key
//   - INVALID_TAPE: the engine was given an empty tape
//   - MISSING_TRANSITION: no rule for the current (state, symbol)
//   - TAPE_OVERRUN: a move would take the head off the tape
//
// A failed step mutates nothing, so the configuration at the time of the
// failure remains inspectable. The engine is strictly sequential and does
// no I/O; callers pace and print between pulls of the sequence.
package machine
