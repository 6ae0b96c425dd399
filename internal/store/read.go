package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/unx2/internal/trace"
)

var (
	// ErrNotFound is returned when a run ID does not exist.
	ErrNotFound = errors.New("run not found")

	// ErrRunFinished is returned when finishing a run that already has an outcome.
	ErrRunFinished = errors.New("run already finished")
)

// Run is a stored run record.
type Run struct {
	ID           string
	Table        string
	TableHash    string
	TableDoc     string
	Input        int
	InitialTape  string
	Status       RunStatus
	Steps        int
	Marks        int
	ErrorCode    string
	ErrorMessage string
	Digest       string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Finished reports whether the run has a terminal status.
func (r Run) Finished() bool {
	return r.Status != StatusRunning
}

const runColumns = `id, table_name, table_hash, table_doc, input, initial_tape, status,
	steps, marks, error_code, error_message, digest, started_at, finished_at`

// GetRun retrieves a single run by ID.
// Returns ErrNotFound if the run does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// LatestRun returns the most recently created run.
// Returns ErrNotFound if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

// ListRuns returns runs newest first. A limit <= 0 returns every run.
//
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// ReadConfigurations returns every stored configuration of a run,
// ORDER BY step ASC.
//
// Returns an empty slice (not nil) if the run has no configurations.
func (s *Store) ReadConfigurations(ctx context.Context, runID string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, state, head, tape
		FROM configurations
		WHERE run_id = ?
		ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query configurations: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var ev trace.Event
		if err := rows.Scan(&ev.Step, &ev.State, &ev.Head, &ev.Tape); err != nil {
			return nil, fmt.Errorf("scan configuration: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configurations: %w", err)
	}

	return events, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		status   string
		started  string
		finished string
	)
	err := row.Scan(
		&run.ID,
		&run.Table,
		&run.TableHash,
		&run.TableDoc,
		&run.Input,
		&run.InitialTape,
		&status,
		&run.Steps,
		&run.Marks,
		&run.ErrorCode,
		&run.ErrorMessage,
		&run.Digest,
		&started,
		&finished,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Status = RunStatus(status)
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("scan run %s: started_at: %w", run.ID, err)
	}
	if finished != "" {
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return Run{}, fmt.Errorf("scan run %s: finished_at: %w", run.ID, err)
		}
	}
	return run, nil
}
