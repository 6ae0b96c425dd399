package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/unx2/internal/trace"
)

// maxTraceContext caps the configurations printed in an AssertionError.
const maxTraceContext = 20

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for i, ev := range e.Trace {
			if i == maxTraceContext {
				fmt.Fprintf(&buf, "  ... %d more\n", len(e.Trace)-maxTraceContext)
				break
			}
			fmt.Fprintf(&buf, "  [%d] state=%s head=%d tape=%s\n", ev.Step, ev.State, ev.Head, ev.Tape)
		}
	}

	return buf.String()
}

// assertTraceContains checks that some configuration matches every field
// the assertion sets.
func assertTraceContains(events []trace.Event, a Assertion) error {
	for _, ev := range events {
		if matchEvent(ev, a) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: "configuration " + describeAssertion(a),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

// assertTraceOrder checks that states are first entered in the given order.
// States don't need to be consecutive.
func assertTraceOrder(events []trace.Event, a Assertion) error {
	first := make(map[string]int)
	for i, ev := range events {
		if _, ok := first[ev.State]; !ok {
			first[ev.State] = i + 1 // 1-indexed so 0 means absent
		}
	}

	for _, state := range a.States {
		if first[state] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all states visited: %v", a.States),
				Actual:   fmt.Sprintf("state %s never entered", state),
				Trace:    events,
			}
		}
	}

	for i := 1; i < len(a.States); i++ {
		prev, curr := a.States[i-1], a.States[i]
		if first[prev] >= first[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("states first entered in order: %v", a.States),
				Actual: fmt.Sprintf("state %s (step %d) should come before state %s (step %d)",
					prev, first[prev]-1, curr, first[curr]-1),
				Trace: events,
			}
		}
	}

	return nil
}

// assertTraceCount checks how many configurations are in the given state.
func assertTraceCount(events []trace.Event, a Assertion) error {
	count := 0
	for _, ev := range events {
		if ev.State == a.State {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d configurations in state %s", a.Count, a.State),
			Actual:   fmt.Sprintf("%d configurations", count),
			Trace:    events,
		}
	}

	return nil
}

// assertTraceLength checks the number of configurations.
func assertTraceLength(events []trace.Event, a Assertion) error {
	if len(events) != a.Count {
		return &AssertionError{
			Type:     AssertTraceLength,
			Expected: fmt.Sprintf("%d configurations", a.Count),
			Actual:   fmt.Sprintf("%d configurations", len(events)),
		}
	}
	return nil
}

func matchEvent(ev trace.Event, a Assertion) bool {
	if a.Step != nil && ev.Step != *a.Step {
		return false
	}
	if a.State != "" && ev.State != a.State {
		return false
	}
	if a.Head != nil && ev.Head != *a.Head {
		return false
	}
	if a.Tape != "" && ev.Tape != a.Tape {
		return false
	}
	return true
}

func describeAssertion(a Assertion) string {
	var parts []string
	if a.Step != nil {
		parts = append(parts, fmt.Sprintf("step=%d", *a.Step))
	}
	if a.State != "" {
		parts = append(parts, "state="+a.State)
	}
	if a.Head != nil {
		parts = append(parts, fmt.Sprintf("head=%d", *a.Head))
	}
	if a.Tape != "" {
		parts = append(parts, "tape="+a.Tape)
	}
	return strings.Join(parts, " ")
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceLength:
			err = assertTraceLength(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
