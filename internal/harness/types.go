package harness

import "github.com/roach88/unx2/internal/trace"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Table is the name of the table that ran.
	Table string `json:"table"`

	// Trace contains every configuration, starting with the initial one.
	// A failing step contributes no configuration.
	Trace []trace.Event `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Steps      int    `json:"steps"`
	Marks      int    `json:"marks"`
	FinalState string `json:"final_state"`
	FinalHead  int    `json:"final_head"`
	FinalTape  string `json:"final_tape"`

	// ErrorCode is the machine error code the run ended with, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Digest is the trace digest of the run.
	Digest string `json:"digest"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Event{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
