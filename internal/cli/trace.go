package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/unx2/internal/render"
	"github.com/roach88/unx2/internal/store"
	"github.com/roach88/unx2/internal/trace"
)

// latestRun selects the most recent run wherever a run ID is expected.
const latestRun = "latest"

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - print one run's configurations
	Limit    int
}

// RunView is a stored run in command output.
type RunView struct {
	ID           string `json:"id"`
	Table        string `json:"table"`
	TableHash    string `json:"table_hash"`
	Input        int    `json:"input"`
	InitialTape  string `json:"initial_tape"`
	Status       string `json:"status"`
	Steps        int    `json:"steps"`
	Marks        int    `json:"marks"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Digest       string `json:"digest,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

func newRunView(r store.Run) RunView {
	v := RunView{
		ID:           r.ID,
		Table:        r.Table,
		TableHash:    r.TableHash,
		Input:        r.Input,
		InitialTape:  r.InitialTape,
		Status:       string(r.Status),
		Steps:        r.Steps,
		Marks:        r.Marks,
		ErrorCode:    r.ErrorCode,
		ErrorMessage: r.ErrorMessage,
		Digest:       r.Digest,
		StartedAt:    r.StartedAt.Format(time.RFC3339),
	}
	if !r.FinishedAt.IsZero() {
		v.FinishedAt = r.FinishedAt.Format(time.RFC3339)
	}
	return v
}

// TraceResult holds one run and its configurations.
type TraceResult struct {
	Run   RunView       `json:"run"`
	Trace []trace.Event `json:"trace"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs and their configurations",
		Long: `List the runs recorded in a run log, newest first, or print the
configurations of one run in the same layout as the run command.

Use --run latest for the most recent run.

Examples:
  unx2 trace --db ./runs.db
  unx2 trace --db ./runs.db --run latest
  unx2 trace --db ./runs.db --run 0192f0c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to print, or \"latest\"")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 = all)")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openRunLog(dbPath(opts.Database, opts.RootOptions))
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		views := make([]RunView, len(runs))
		for i, r := range runs {
			views[i] = newRunView(r)
		}
		if formatter.JSON() {
			return formatter.Success(views)
		}
		return outputRunList(formatter.Writer, views)
	}

	run, err := findRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}
	events, err := st.ReadConfigurations(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read configurations", err)
	}

	result := TraceResult{Run: newRunView(run), Trace: events}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter.Writer, result)
}

// findRun resolves a run ID or "latest".
func findRun(ctx context.Context, st *store.Store, id string) (store.Run, error) {
	var run store.Run
	var err error
	if id == latestRun {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.GetRun(ctx, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		return run, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		return run, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}

func outputRunList(w io.Writer, runs []RunView) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTABLE\tINPUT\tSTATUS\tSTEPS\tMARKS\tSTARTED")
	for _, r := range runs {
		status := r.Status
		if r.ErrorCode != "" {
			status += " (" + r.ErrorCode + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n",
			r.ID, r.Table, r.Input, status, r.Steps, r.Marks, r.StartedAt)
	}
	return tw.Flush()
}

func outputTraceText(w io.Writer, result TraceResult) error {
	r := result.Run
	fmt.Fprintf(w, "Run: %s\n", r.ID)
	fmt.Fprintf(w, "Table: %s (%s)\n", r.Table, truncateID(r.TableHash))
	fmt.Fprintf(w, "Input: %d  Status: %s  Steps: %d  Marks: %d\n", r.Input, r.Status, r.Steps, r.Marks)
	if r.ErrorCode != "" {
		fmt.Fprintf(w, "Error: %s\n", r.ErrorMessage)
	}
	if r.Digest != "" {
		fmt.Fprintf(w, "Digest: %s\n", r.Digest)
	}
	fmt.Fprintln(w)

	if len(result.Trace) == 0 {
		fmt.Fprintln(w, "No configurations recorded.")
		return nil
	}
	for _, ev := range result.Trace {
		c, err := ev.Configuration()
		if err != nil {
			return WrapExitError(ExitFailure, "corrupt configuration", err)
		}
		if c.Head < 0 || c.Head >= len(c.Tape) {
			return NewExitError(ExitFailure, fmt.Sprintf("corrupt configuration at step %d: head %d outside the tape", c.Step, c.Head))
		}
		if err := render.WriteConfiguration(w, c); err != nil {
			return err
		}
	}
	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
