package store

import (
	"context"
	"fmt"

	"github.com/roach88/unx2/internal/machine"
	"github.com/roach88/unx2/internal/trace"
)

// Mismatch describes the first point where a replay diverged from the log.
type Mismatch struct {
	Step  int
	Field string
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("step %d: %s: recorded %q, replayed %q", m.Step, m.Field, m.Want, m.Got)
}

// VerifyResult is the outcome of replaying one stored run.
type VerifyResult struct {
	Run      Run
	Compared int
	Digest   string
	Mismatch *Mismatch
}

// Match reports whether the replay reproduced the recorded run exactly.
func (r VerifyResult) Match() bool {
	return r.Mismatch == nil
}

// Verify re-executes a stored run and compares it with the log.
//
// The table is rebuilt from its stored canonical JSON and must hash to the
// recorded table hash. The engine starts from the stored initial tape with
// the state and head of the recorded initial configuration. Every recorded
// configuration must match the replayed one byte for byte; a finished run
// must also end the same way (halt or the same error code) and reproduce
// the recorded trace digest. Runs that were cancelled or never finished
// are compared over their recorded prefix only.
//
// A returned error means the run could not be replayed at all; divergence
// is reported through VerifyResult.Mismatch.
func (s *Store) Verify(ctx context.Context, runID string) (VerifyResult, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("verify: %w", err)
	}
	result := VerifyResult{Run: run}

	recorded, err := s.ReadConfigurations(ctx, runID)
	if err != nil {
		return result, fmt.Errorf("verify %s: %w", runID, err)
	}

	doc, err := trace.DecodeTableDoc([]byte(run.TableDoc))
	if err != nil {
		return result, fmt.Errorf("verify %s: %w", runID, err)
	}
	tbl, err := doc.Table()
	if err != nil {
		return result, fmt.Errorf("verify %s: rebuild table: %w", runID, err)
	}
	hash, err := trace.TableHash(tbl)
	if err != nil {
		return result, fmt.Errorf("verify %s: %w", runID, err)
	}
	if hash != run.TableHash {
		result.Mismatch = &Mismatch{Step: 0, Field: "table_hash", Want: run.TableHash, Got: hash}
		return result, nil
	}

	tape, err := machine.ParseTape(run.InitialTape)
	if err != nil {
		return result, fmt.Errorf("verify %s: initial tape: %w", runID, err)
	}

	var opts []machine.Option
	if len(recorded) > 0 {
		opts = append(opts,
			machine.WithStartState(machine.State(recorded[0].State)),
			machine.WithStartPosition(recorded[0].Head),
		)
	}
	if run.ErrorCode == string(machine.ErrCodeStepLimit) {
		opts = append(opts, machine.WithMaxSteps(run.Steps))
	}

	eng, err := machine.New(tape, tbl, opts...)
	if err != nil {
		return result, fmt.Errorf("verify %s: %w", runID, err)
	}

	finished := run.Status == StatusHalted || run.Status == StatusFailed
	rec := trace.NewRecorder(false)
	var runErr error

	for c, err := range eng.Run() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("verify %s: %w", runID, ctxErr)
		}
		if err != nil {
			runErr = err
			break
		}
		if result.Compared == len(recorded) {
			if finished {
				result.Mismatch = &Mismatch{Step: c.Step, Field: "configuration", Want: "", Got: describe(trace.FromConfiguration(c))}
				return result, nil
			}
			break
		}

		got, err := rec.Add(c)
		if err != nil {
			return result, fmt.Errorf("verify %s: %w", runID, err)
		}
		if m := compareEvent(recorded[result.Compared], got); m != nil {
			result.Mismatch = m
			return result, nil
		}
		result.Compared++
	}
	result.Digest = rec.Digest()

	if result.Compared < len(recorded) {
		want := recorded[result.Compared]
		result.Mismatch = &Mismatch{Step: want.Step, Field: "configuration", Want: describe(want), Got: ""}
		return result, nil
	}

	if !finished {
		return result, nil
	}

	gotCode := string(machine.CodeOf(runErr))
	if gotCode != run.ErrorCode {
		result.Mismatch = &Mismatch{Step: eng.Steps(), Field: "error_code", Want: run.ErrorCode, Got: gotCode}
		return result, nil
	}
	if run.Digest != "" && result.Digest != run.Digest {
		result.Mismatch = &Mismatch{Step: eng.Steps(), Field: "digest", Want: run.Digest, Got: result.Digest}
		return result, nil
	}

	return result, nil
}

// FindIncompleteRuns returns runs that never recorded an outcome, oldest
// first. These are runs whose process died mid-execution.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE status = 'running'
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
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
		return nil, fmt.Errorf("iterate incomplete runs: %w", err)
	}

	return runs, nil
}

func compareEvent(want, got trace.Event) *Mismatch {
	switch {
	case want.Step != got.Step:
		return &Mismatch{Step: want.Step, Field: "step", Want: fmt.Sprint(want.Step), Got: fmt.Sprint(got.Step)}
	case want.State != got.State:
		return &Mismatch{Step: want.Step, Field: "state", Want: want.State, Got: got.State}
	case want.Head != got.Head:
		return &Mismatch{Step: want.Step, Field: "head", Want: fmt.Sprint(want.Head), Got: fmt.Sprint(got.Head)}
	case want.Tape != got.Tape:
		return &Mismatch{Step: want.Step, Field: "tape", Want: want.Tape, Got: got.Tape}
	}
	return nil
}

func describe(ev trace.Event) string {
	return fmt.Sprintf("state=%s head=%d tape=%s", ev.State, ev.Head, ev.Tape)
}
