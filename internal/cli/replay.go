package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/unx2/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Table         string `json:"table"`
	Status        string `json:"status"`
	Compared      int    `json:"compared"`
	Digest        string `json:"digest,omitempty"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	Incomplete       []string          `json:"incomplete,omitempty"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute recorded runs and verify determinism",
		Long: `Re-execute recorded runs and verify they reproduce their log.

Each run's table is rebuilt from the stored copy and checked against its
hash, then the machine is run again from the stored initial tape. Every
recorded configuration must match, and a finished run must end the same
way with the same trace digest.

Exit codes:
  0 - All runs replayed identically
  1 - At least one run diverged
  2 - Command error (database not found, run not found, etc.)

Examples:
  unx2 replay --db ./runs.db
  unx2 replay --db ./runs.db --run latest
  unx2 replay --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay a specific run only (or \"latest\")")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openRunLog(dbPath(opts.Database, opts.RootOptions))
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := findRun(ctx, st, opts.RunID)
		if err != nil {
			return err
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx, 0)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		// Oldest first.
		slices.Reverse(runs)
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	incomplete, err := st.FindIncompleteRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find incomplete runs", err)
	}
	for _, r := range incomplete {
		result.Incomplete = append(result.Incomplete, r.ID)
	}

	for _, run := range runs {
		verified, err := st.Verify(ctx, run.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}

		runResult := ReplayRunResult{
			RunID:         run.ID,
			Table:         run.Table,
			Status:        string(run.Status),
			Compared:      verified.Compared,
			Digest:        verified.Digest,
			Deterministic: verified.Match(),
		}
		if !verified.Match() {
			runResult.Mismatch = verified.Mismatch.String()
			result.AllDeterministic = false
			slog.Warn("replay diverged", "run", run.ID, "mismatch", runResult.Mismatch)
		}
		result.Runs = append(result.Runs, runResult)
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter.Writer, result)
	}
	return outputReplayText(formatter.Writer, result, opts.Verbose)
}

func outputReplayJSON(w io.Writer, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDivergence,
			Message: "determinism verification failed",
		}
	}

	if err := writeJSON(w, response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s (%s, %s)\n", status, run.RunID, run.Table, run.Status)
		fmt.Fprintf(w, "  Configurations: %d\n", run.Compared)
		if verbose && run.Digest != "" {
			fmt.Fprintf(w, "  Digest: %s\n", run.Digest)
		}
		if !run.Deterministic {
			fmt.Fprintf(w, "  Diverged at %s\n", run.Mismatch)
		}
		fmt.Fprintln(w)
	}

	if len(result.Incomplete) > 0 {
		fmt.Fprintf(w, "Note: %d run(s) never finished: %v\n\n", len(result.Incomplete), result.Incomplete)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
