// Package harness runs machine scenarios: a table, an input tape, and the
// expected outcome, checked against a real engine run.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: penrose_doubles_three
//	description: "Penrose's table doubles 3"
//	table: penrose             # built-in name or P/m, or:
//	table_file: flip.cue       # CUE/YAML table, relative to the scenario
//	table_name: flip           # which table, if the file defines several
//	input: 3                   # unary input, or:
//	tape: "0001000"            # explicit initial tape
//	max_steps: 1000            # optional quota (default DefaultStepBudget)
//	expect:
//	  marks: 6
//	  steps: 30
//	  final_state: "0"
//	  final_head: 11
//	  final_tape: "0000001111110"
//	  error: TAPE_OVERRUN      # expected failure code, if any
//	assertions:
//	  - type: trace_contains
//	    state: "3"
//	    head: 10
//	  - type: trace_order
//	    states: ["0", "1", "2", "3"]
//	  - type: trace_count
//	    state: "5"
//	    count: 6
//	  - type: trace_length
//	    count: 31
//
// # Assertion Types
//
//   - trace_contains: some configuration matches every given field (step, state, head, tape)
//   - trace_order: the listed states are first entered in this order
//   - trace_count: exactly count configurations are in the given state
//   - trace_length: the trace has exactly count configurations
//
// # Deterministic Testing
//
// Every scenario is recorded into a fresh in-memory run log with fixed run
// IDs and a deterministic clock, then replayed from the log. A replay that
// diverges from the live run fails the scenario. Traces are serialized as
// canonical JSON, so golden snapshots are byte-stable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/penrose.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
