package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/unx2/internal/machine"
	"github.com/roach88/unx2/internal/trace"
)

// timeLayout is the storage format for run timestamps.
const timeLayout = time.RFC3339Nano

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusHalted    RunStatus = "halted"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// NewRun describes a run about to start.
type NewRun struct {
	Table *machine.Table
	Input int
	Tape  machine.Tape
}

// Outcome is the terminal result of a run.
type Outcome struct {
	Status RunStatus
	Steps  int
	Marks  int
	Err    error
	Digest string
}

// CreateRun inserts a run in the running state and returns it.
//
// The table is stored as canonical JSON so the run can be replayed without
// the original table source.
func (s *Store) CreateRun(ctx context.Context, nr NewRun) (Run, error) {
	if nr.Table == nil {
		return Run{}, errors.New("create run: table is required")
	}

	doc, err := trace.DocFromTable(nr.Table).MarshalCanonical()
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	hash, err := trace.TableHash(nr.Table)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	run := Run{
		ID:          s.ids.Generate(),
		Table:       nr.Table.Name(),
		TableHash:   hash,
		TableDoc:    string(doc),
		Input:       nr.Input,
		InitialTape: nr.Tape.String(),
		Status:      StatusRunning,
		StartedAt:   s.clock().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, table_name, table_hash, table_doc, input, initial_tape, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Table,
		run.TableHash,
		run.TableDoc,
		run.Input,
		run.InitialTape,
		string(run.Status),
		run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	return run, nil
}

// AppendConfiguration records one configuration of a run.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a step is ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) AppendConfiguration(ctx context.Context, runID string, ev trace.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO configurations (run_id, step, state, head, tape)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`, runID, ev.Step, ev.State, ev.Head, ev.Tape)
	if err != nil {
		return fmt.Errorf("append configuration %d: %w", ev.Step, err)
	}
	return nil
}

// AppendConfigurations records a batch of configurations in one transaction.
func (s *Store) AppendConfigurations(ctx context.Context, runID string, events []trace.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append configurations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO configurations (run_id, step, state, head, tape)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append configurations: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, runID, ev.Step, ev.State, ev.Head, ev.Tape); err != nil {
			return fmt.Errorf("append configuration %d: %w", ev.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append configurations: commit: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a running run.
// Returns ErrNotFound if the run does not exist and ErrRunFinished if it
// already has an outcome.
func (s *Store) FinishRun(ctx context.Context, runID string, out Outcome) error {
	if out.Status == StatusRunning || out.Status == "" {
		return fmt.Errorf("finish run: invalid terminal status %q", out.Status)
	}

	var code, msg string
	if out.Err != nil {
		code = string(machine.CodeOf(out.Err))
		msg = out.Err.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, steps = ?, marks = ?, error_code = ?, error_message = ?,
		    digest = ?, finished_at = ?
		WHERE id = ? AND status = 'running'
	`,
		string(out.Status),
		out.Steps,
		out.Marks,
		code,
		msg,
		out.Digest,
		s.clock().UTC().Format(timeLayout),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		if _, err := s.GetRun(ctx, runID); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		return fmt.Errorf("finish run %s: %w", runID, ErrRunFinished)
	}
	return nil
}
