package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/unx2/internal/machine"
)

// DefaultStepBudget bounds scenario runs that do not set max_steps: the
// square of the tape length, which every halting run of the built-in
// tables stays under.
func DefaultStepBudget(tape machine.Tape) int {
	return len(tape) * len(tape)
}

// Scenario defines a machine test scenario: which table runs on which tape,
// and what the run must look like.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Table selects a built-in table by name or by its P/m shorthand.
	Table string `yaml:"table,omitempty"`

	// TableFile is a CUE or YAML table source.
	// Relative paths are resolved against the scenario file's directory.
	TableFile string `yaml:"table_file,omitempty"`

	// TableName picks one table when TableFile defines several.
	TableName string `yaml:"table_name,omitempty"`

	// Input builds a unary tape for this integer.
	Input int `yaml:"input,omitempty"`

	// Tape is an explicit initial tape such as "0011000".
	Tape string `yaml:"tape,omitempty"`

	// StartState overrides the table's start state.
	StartState string `yaml:"start_state,omitempty"`

	// StartPosition is the initial head position.
	StartPosition int `yaml:"start_position,omitempty"`

	// MaxSteps is the step quota. Zero means DefaultStepBudget of the tape.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Expect describes the final outcome.
	Expect Expect `yaml:"expect"`

	// Assertions validate the trace.
	// Supported types: trace_contains, trace_order, trace_count, trace_length
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies the expected end of a run. Unset fields are not checked.
type Expect struct {
	Marks      *int    `yaml:"marks,omitempty"`
	Steps      *int    `yaml:"steps,omitempty"`
	FinalState *string `yaml:"final_state,omitempty"`
	FinalHead  *int    `yaml:"final_head,omitempty"`
	FinalTape  string  `yaml:"final_tape,omitempty"`

	// Error is the expected machine error code. Empty means the run must halt.
	Error string `yaml:"error,omitempty"`
}

func (e Expect) empty() bool {
	return e.Marks == nil && e.Steps == nil && e.FinalState == nil &&
		e.FinalHead == nil && e.FinalTape == "" && e.Error == ""
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": some configuration matches Step, State, Head and Tape (when set)
	// - "trace_order": States are first entered in the given order
	// - "trace_count": exactly Count configurations are in State
	// - "trace_length": the trace has exactly Count configurations
	Type string `yaml:"type"`

	Step  *int   `yaml:"step,omitempty"`
	State string `yaml:"state,omitempty"`
	Head  *int   `yaml:"head,omitempty"`
	Tape  string `yaml:"tape,omitempty"`

	// States is the expected order (used by trace_order).
	States []string `yaml:"states,omitempty"`

	// Count is the expected number (used by trace_count and trace_length).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTraceLength   = "trace_length"
)

var knownErrorCodes = map[string]bool{
	string(machine.ErrCodeMissingTransition): true,
	string(machine.ErrCodeTapeOverrun):       true,
	string(machine.ErrCodeStepLimit):         true,
	string(machine.ErrCodeInvalidTape):       true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative table_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.TableFile != "" && !filepath.IsAbs(scenario.TableFile) {
		scenario.TableFile = filepath.Join(filepath.Dir(path), scenario.TableFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Table == "" && s.TableFile == "":
		return fmt.Errorf("one of table or table_file is required")
	case s.Table != "" && s.TableFile != "":
		return fmt.Errorf("table and table_file are mutually exclusive")
	case s.TableName != "" && s.TableFile == "":
		return fmt.Errorf("table_name requires table_file")
	}

	if s.TableFile != "" {
		if _, err := os.Stat(s.TableFile); os.IsNotExist(err) {
			return fmt.Errorf("table file not found: %s", s.TableFile)
		}
	}

	switch {
	case s.Input == 0 && s.Tape == "":
		return fmt.Errorf("one of input or tape is required")
	case s.Input != 0 && s.Tape != "":
		return fmt.Errorf("input and tape are mutually exclusive")
	case s.Input < 0:
		return fmt.Errorf("input must be a positive integer, got %d", s.Input)
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	if s.Expect.Error != "" && !knownErrorCodes[s.Expect.Error] {
		return fmt.Errorf("expect.error: unknown error code %q", s.Expect.Error)
	}

	if s.Expect.empty() && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Step == nil && a.State == "" && a.Head == nil && a.Tape == "" {
			return fmt.Errorf("assertions[%d]: trace_contains needs at least one of step, state, head, tape", index)
		}
	case AssertTraceOrder:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceLength:
		if a.Count <= 0 {
			return fmt.Errorf("assertions[%d]: count must be positive for trace_length", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// FindScenarioFiles returns every .yaml/.yml file under dir, sorted.
// A non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
