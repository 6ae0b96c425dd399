package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/roach88/unx2/internal/machine"
	"github.com/roach88/unx2/internal/testutil"
	"github.com/roach88/unx2/internal/trace"
)

// createTestStore creates a new store in a temp dir with deterministic IDs
// and timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewFixedRunIDGenerator()),
		WithClock(testutil.NewDeterministicClock().Now),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// recordRun executes tbl on a unary tape of n and stores the whole run,
// the way the run command does.
func recordRun(t *testing.T, s *Store, tbl *machine.Table, n int, opts ...machine.Option) Run {
	t.Helper()
	ctx := context.Background()

	tape, err := machine.NewUnaryTape(n)
	if err != nil {
		t.Fatalf("NewUnaryTape(%d): %v", n, err)
	}
	run, err := s.CreateRun(ctx, NewRun{Table: tbl, Input: n, Tape: tape})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	eng, err := machine.New(tape, tbl, opts...)
	if err != nil {
		t.Fatalf("machine.New: %v", err)
	}

	rec := trace.NewRecorder(false)
	var runErr error
	for c, err := range eng.Run() {
		if err != nil {
			runErr = err
			break
		}
		ev, err := rec.Add(c)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if err := s.AppendConfiguration(ctx, run.ID, ev); err != nil {
			t.Fatalf("AppendConfiguration: %v", err)
		}
	}

	out := Outcome{
		Status: StatusHalted,
		Steps:  eng.Steps(),
		Marks:  eng.Tape().Count(machine.Mark),
		Err:    runErr,
		Digest: rec.Digest(),
	}
	var me *machine.MachineError
	if errors.As(runErr, &me) {
		out.Status = StatusFailed
	}
	if err := s.FinishRun(ctx, run.ID, out); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err = s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	return run
}
