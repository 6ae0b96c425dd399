package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/unx2/internal/compiler"
	"github.com/roach88/unx2/internal/machine"
	"github.com/roach88/unx2/internal/store"
	"github.com/roach88/unx2/internal/tables"
	"github.com/roach88/unx2/internal/testutil"
	"github.com/roach88/unx2/internal/trace"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory run log for isolation.
// Execution flow:
//  1. Resolve the table and build the initial tape
//  2. Run the engine, recording every configuration
//  3. Replay the recorded run from the log and compare
//  4. Check expectations and assertions
//
// A returned error means the scenario could not be set up (bad table,
// bad tape). Machine failures are part of the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	tbl, err := resolveTable(scenario)
	if err != nil {
		return nil, err
	}

	tape, err := buildTape(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewFixedRunIDGenerator()),
		store.WithClock(testutil.NewDeterministicClock().Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	maxSteps := scenario.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultStepBudget(tape)
	}
	opts := []machine.Option{
		machine.WithStartPosition(scenario.StartPosition),
		machine.WithMaxSteps(maxSteps),
	}
	if scenario.StartState != "" {
		opts = append(opts, machine.WithStartState(machine.State(scenario.StartState)))
	}

	eng, err := machine.New(tape, tbl, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	run, err := st.CreateRun(ctx, store.NewRun{Table: tbl, Input: scenario.Input, Tape: tape})
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Table = tbl.Name()

	rec := trace.NewRecorder(true)
	var runErr error
	for c, err := range eng.Run() {
		if err != nil {
			runErr = err
			break
		}
		if _, err := rec.Add(c); err != nil {
			return nil, err
		}
	}
	if err := st.AppendConfigurations(ctx, run.ID, rec.Events()); err != nil {
		return nil, err
	}

	final := eng.Configuration()
	result.Trace = rec.Events()
	result.Steps = eng.Steps()
	result.Marks = final.Tape.Count(machine.Mark)
	result.FinalState = string(final.State)
	result.FinalHead = final.Head
	result.FinalTape = final.Tape.String()
	result.ErrorCode = string(machine.CodeOf(runErr))
	result.Digest = rec.Digest()

	slog.Debug("scenario executed",
		"scenario", scenario.Name,
		"table", tbl.Name(),
		"steps", result.Steps,
		"err", runErr,
	)

	status := store.StatusHalted
	if runErr != nil {
		status = store.StatusFailed
	}
	err = st.FinishRun(ctx, run.ID, store.Outcome{
		Status: status,
		Steps:  result.Steps,
		Marks:  result.Marks,
		Err:    runErr,
		Digest: result.Digest,
	})
	if err != nil {
		return nil, err
	}

	verify, err := st.Verify(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if !verify.Match() {
		result.AddError("replay diverged: " + verify.Mismatch.String())
	}

	checkExpect(result, scenario.Expect, runErr)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func resolveTable(s *Scenario) (*machine.Table, error) {
	if s.Table != "" {
		tbl, err := tables.Select(s.Table)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		return tbl, nil
	}

	loaded, errs := compiler.Load(s.TableFile)
	if len(errs) > 0 {
		return nil, fmt.Errorf("scenario %s: load %s: %w", s.Name, s.TableFile, errors.Join(errs...))
	}
	tbl, err := loaded.Table(s.TableName)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %s: %w", s.Name, s.TableFile, err)
	}
	return tbl, nil
}

func buildTape(s *Scenario) (machine.Tape, error) {
	if s.Tape != "" {
		tape, err := machine.ParseTape(s.Tape)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: tape: %w", s.Name, err)
		}
		return tape, nil
	}
	tape, err := machine.NewUnaryTape(s.Input)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: input: %w", s.Name, err)
	}
	return tape, nil
}

// checkExpect compares the run outcome with the scenario's expect clause.
func checkExpect(result *Result, want Expect, runErr error) {
	switch {
	case want.Error == "" && runErr != nil:
		result.AddError(fmt.Sprintf("expected the machine to halt, got error: %v", runErr))
	case want.Error != "" && runErr == nil:
		result.AddError(fmt.Sprintf("expected error %s, but the machine halted", want.Error))
	case want.Error != "" && result.ErrorCode != want.Error:
		result.AddError(fmt.Sprintf("expected error %s, got %s", want.Error, result.ErrorCode))
	}

	if want.Marks != nil && result.Marks != *want.Marks {
		result.AddError(fmt.Sprintf("marks: expected %d, got %d", *want.Marks, result.Marks))
	}
	if want.Steps != nil && result.Steps != *want.Steps {
		result.AddError(fmt.Sprintf("steps: expected %d, got %d", *want.Steps, result.Steps))
	}
	if want.FinalState != nil && result.FinalState != *want.FinalState {
		result.AddError(fmt.Sprintf("final_state: expected %s, got %s", *want.FinalState, result.FinalState))
	}
	if want.FinalHead != nil && result.FinalHead != *want.FinalHead {
		result.AddError(fmt.Sprintf("final_head: expected %d, got %d", *want.FinalHead, result.FinalHead))
	}
	if want.FinalTape != "" && result.FinalTape != want.FinalTape {
		result.AddError(fmt.Sprintf("final_tape: expected %s, got %s", want.FinalTape, result.FinalTape))
	}
}
