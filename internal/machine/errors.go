package machine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes machine errors.
type ErrorCode string

const (
	// ErrCodeDuplicateRule indicates two table entries share a (state, symbol) key.
	ErrCodeDuplicateRule ErrorCode = "DUPLICATE_RULE"

	// ErrCodeInvalidRule indicates a table entry with an illegal symbol or direction.
	ErrCodeInvalidRule ErrorCode = "INVALID_RULE"

	// ErrCodeInvalidTape indicates the engine was initialized with an empty tape.
	ErrCodeInvalidTape ErrorCode = "INVALID_TAPE"

	// ErrCodeMissingTransition indicates no rule exists for the current (state, symbol).
	ErrCodeMissingTransition ErrorCode = "MISSING_TRANSITION"

	// ErrCodeTapeOverrun indicates the head would leave [0, len(tape)).
	ErrCodeTapeOverrun ErrorCode = "TAPE_OVERRUN"

	// ErrCodeStepLimit indicates a run exceeded the configured step quota.
	ErrCodeStepLimit ErrorCode = "STEP_LIMIT"
)

var (
	// ErrHalted is returned by Step once the machine has halted normally.
	ErrHalted = errors.New("machine halted")

	// ErrRunStarted is yielded when Run is called a second time on one engine.
	// The configuration sequence is not restartable; build a new Engine instead.
	ErrRunStarted = errors.New("run already started")
)

// MachineError is the error type for table construction and execution failures.
//
// Execution errors carry the configuration at the time of failure (State,
// Symbol under the head, Head, Step), which is still valid: a failed step
// mutates nothing.
type MachineError struct {
	Code    ErrorCode
	Message string
	State   State
	Symbol  Symbol
	Head    int
	Step    int
}

// Error implements the error interface.
func (e *MachineError) Error() string {
	switch e.Code {
	case ErrCodeMissingTransition, ErrCodeTapeOverrun, ErrCodeStepLimit:
		return fmt.Sprintf("%s: %s (state=%s, symbol=%s, head=%d, step=%d)",
			e.Code, e.Message, e.State, e.Symbol, e.Head, e.Step)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the error code of a MachineError anywhere in err's chain,
// or "" if there is none.
func CodeOf(err error) ErrorCode {
	var me *MachineError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsDuplicateRule returns true if err is a duplicate rule error.
func IsDuplicateRule(err error) bool { return CodeOf(err) == ErrCodeDuplicateRule }

// IsInvalidTape returns true if err is an invalid tape error.
func IsInvalidTape(err error) bool { return CodeOf(err) == ErrCodeInvalidTape }

// IsMissingTransition returns true if err is a missing transition error.
func IsMissingTransition(err error) bool { return CodeOf(err) == ErrCodeMissingTransition }

// IsTapeOverrun returns true if err is a tape overrun error.
func IsTapeOverrun(err error) bool { return CodeOf(err) == ErrCodeTapeOverrun }

// IsStepLimit returns true if err is a step quota error.
func IsStepLimit(err error) bool { return CodeOf(err) == ErrCodeStepLimit }

func newDuplicateRuleError(k Key) *MachineError {
	return &MachineError{
		Code:    ErrCodeDuplicateRule,
		Message: fmt.Sprintf("duplicate rule for (state %s, symbol %s)", k.State, k.Symbol),
		State:   k.State,
		Symbol:  k.Symbol,
	}
}

func newInvalidRuleError(i int, msg string) *MachineError {
	return &MachineError{
		Code:    ErrCodeInvalidRule,
		Message: fmt.Sprintf("rule %d: %s", i, msg),
	}
}
