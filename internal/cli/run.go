package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/unx2/internal/compiler"
	"github.com/roach88/unx2/internal/config"
	"github.com/roach88/unx2/internal/logging"
	"github.com/roach88/unx2/internal/machine"
	"github.com/roach88/unx2/internal/render"
	"github.com/roach88/unx2/internal/store"
	"github.com/roach88/unx2/internal/tables"
	"github.com/roach88/unx2/internal/trace"
)

// Interactive prompts.
const (
	promptAlgorithm     = "Which algorithm do you want to use: Penrose's (P) or menda's (m)? "
	promptNotUnderstood = "I didn't understand."
	promptInput         = "Enter positive integer to be multiplied: "
	promptNotPositive   = "You didn't enter a positive integer. Please try again"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Table     string
	TableFile string
	TableName string
	Input     int
	Database  string
	Delay     time.Duration
	MaxSteps  int
	Quiet     bool

	// IDGenerator and Clock override the run log's defaults (for testing).
	IDGenerator store.RunIDGenerator
	Clock       func() time.Time
}

// RunSummary is the outcome of one run.
type RunSummary struct {
	RunID      string `json:"run_id,omitempty"`
	Table      string `json:"table"`
	Input      int    `json:"input"`
	Status     string `json:"status"`
	Steps      int    `json:"steps"`
	Marks      int    `json:"marks"`
	FinalState string `json:"final_state"`
	FinalHead  int    `json:"final_head"`
	FinalTape  string `json:"final_tape"`
	Digest     string `json:"digest"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Double a unary integer on the Turing machine",
		Long: `Run a transition table on the unary tape for a positive integer and
print every configuration, then the number of marks left on the tape.

Without --table or --input the command asks for them on stdin. With --db
the run and each of its configurations are recorded for trace and replay.

Exit codes:
  0 - The machine halted (or the run was cancelled)
  1 - The machine failed (missing transition, tape overrun, step limit)
  2 - Command error (bad flags, unreadable table file, database error)

Examples:
  unx2 run
  unx2 run --table P --input 3
  unx2 run --table menda --input 5 --delay 200ms --db ./runs.db
  unx2 run --table-file ./tables/flip.cue --input 2 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMachine(ctx, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "algorithm: P (Penrose), m (menda) or a built-in table name")
	cmd.Flags().StringVar(&opts.TableFile, "table-file", "", "run a table from a CUE or YAML file or directory")
	cmd.Flags().StringVar(&opts.TableName, "table-name", "", "table to run when --table-file defines several")
	cmd.Flags().IntVarP(&opts.Input, "input", "n", 0, "positive integer to double")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "pause between rendered configurations")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", config.DefaultMaxSteps, "step limit (0 = unlimited)")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "print only the result")
	cmd.MarkFlagsMutuallyExclusive("table", "table-file")

	return cmd
}

func (o *RunOptions) storeOptions() []store.Option {
	var opts []store.Option
	if o.IDGenerator != nil {
		opts = append(opts, store.WithIDGenerator(o.IDGenerator))
	}
	if o.Clock != nil {
		opts = append(opts, store.WithClock(o.Clock))
	}
	return opts
}

func runMachine(ctx context.Context, opts *RunOptions, cmd *cobra.Command) error {
	cfg := opts.settings()
	formatter := opts.formatter(cmd)
	flags := cmd.Flags()

	// Prompts must not corrupt JSON output.
	promptOut := cmd.OutOrStdout()
	if formatter.JSON() {
		promptOut = cmd.ErrOrStderr()
	}
	p := newPrompter(cmd.InOrStdin(), promptOut)

	table, err := resolveRunTable(opts, cfg, p)
	if err != nil {
		return err
	}

	n := opts.Input
	if flags.Changed("input") {
		if n <= 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("--input must be a positive integer, got %d", n))
		}
	} else {
		if n, err = p.positiveInt(); err != nil {
			return err
		}
	}

	maxSteps := cfg.MaxSteps
	if flags.Changed("max-steps") {
		maxSteps = opts.MaxSteps
	}
	if maxSteps < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--max-steps must be non-negative, got %d", maxSteps))
	}
	delay := cfg.Delay
	if flags.Changed("delay") {
		delay = opts.Delay
	}
	dbPath := cfg.DB
	if opts.Database != "" {
		dbPath = opts.Database
	}

	tape, err := machine.NewUnaryTape(n)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid input", err)
	}
	eng, err := machine.New(tape, table, machine.WithMaxSteps(maxSteps))
	if err != nil {
		return WrapExitError(ExitFailure, "machine failed", err)
	}

	// Writes to the run log must survive cancellation of the run itself.
	dbCtx := context.WithoutCancel(ctx)

	var st *store.Store
	var run store.Run
	if dbPath != "" {
		st, err = store.Open(dbPath, opts.storeOptions()...)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", logging.Err(closeErr))
			}
		}()

		run, err = st.CreateRun(dbCtx, store.NewRun{Table: table, Input: n, Tape: tape})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	slog.Info("run starting",
		"run", run.ID,
		"table", table.Name(),
		"input", n,
		"max_steps", maxSteps,
		"delay", delay,
	)

	w := cmd.OutOrStdout()
	show := !formatter.JSON() && !opts.Quiet
	if show {
		if err := render.WriteStartBanner(w); err != nil {
			return err
		}
	}

	rec := trace.NewRecorder(false)
	var runErr error
	cancelled := false
	for c, err := range eng.Run() {
		if err != nil {
			runErr = err
			break
		}

		ev, err := rec.Add(c)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to record trace", err)
		}
		if st != nil {
			if err := st.AppendConfiguration(dbCtx, run.ID, ev); err != nil {
				return WrapExitError(ExitCommandError, "failed to record configuration", err)
			}
		}
		if show {
			if err := render.WriteConfiguration(w, c); err != nil {
				return err
			}
		}

		if !eng.Halted() {
			if err := pause(ctx, delay); err != nil {
				cancelled = true
				break
			}
		}
	}

	final := eng.Configuration()
	summary := RunSummary{
		RunID:      run.ID,
		Table:      table.Name(),
		Input:      n,
		Status:     string(store.StatusHalted),
		Steps:      eng.Steps(),
		Marks:      final.Tape.Count(machine.Mark),
		FinalState: string(final.State),
		FinalHead:  final.Head,
		FinalTape:  final.Tape.String(),
		Digest:     rec.Digest(),
	}
	switch {
	case cancelled:
		summary.Status = string(store.StatusCancelled)
	case runErr != nil:
		summary.Status = string(store.StatusFailed)
		summary.ErrorCode = errorCode(runErr)
		summary.Error = runErr.Error()
	}

	if st != nil {
		err := st.FinishRun(dbCtx, run.ID, store.Outcome{
			Status: store.RunStatus(summary.Status),
			Steps:  summary.Steps,
			Marks:  summary.Marks,
			Err:    runErr,
			Digest: summary.Digest,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to finish run", err)
		}
	}

	slog.Info("run finished",
		"run", run.ID,
		"status", summary.Status,
		"steps", summary.Steps,
		"marks", summary.Marks,
		"digest", summary.Digest,
	)

	if formatter.JSON() {
		return outputRunJSON(w, summary, runErr)
	}
	return outputRunText(w, summary, runErr, show)
}

// resolveRunTable picks the table from --table-file, --table, the config,
// or the interactive prompt, in that order.
func resolveRunTable(opts *RunOptions, cfg *config.Config, p *prompter) (*machine.Table, error) {
	if opts.TableFile != "" {
		loaded, errs := compiler.Load(opts.TableFile)
		if len(errs) > 0 {
			return nil, WrapExitError(ExitCommandError, "failed to load table file", errors.Join(errs...))
		}
		table, err := loaded.Table(opts.TableName)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to select table", err)
		}
		return table, nil
	}

	choice := opts.Table
	if choice == "" {
		choice = cfg.Table
	}
	if choice != "" {
		table, err := tables.Select(choice)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid table", err)
		}
		return table, nil
	}

	return p.algorithm()
}

// pause waits for d or until ctx is done. A zero delay only checks ctx.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func outputRunText(w io.Writer, summary RunSummary, runErr error, show bool) error {
	switch summary.Status {
	case string(store.StatusCancelled):
		fmt.Fprintf(w, "\nRun cancelled after %d step(s).\n", summary.Steps)
	case string(store.StatusFailed):
		if summary.RunID != "" {
			fmt.Fprintf(w, "Run recorded: %s\n", summary.RunID)
		}
		return WrapExitError(ExitFailure, "machine failed", runErr)
	default:
		if show {
			if err := render.WriteEndBanner(w, summary.Steps); err != nil {
				return err
			}
		}
		fmt.Fprintln(w, render.Result(summary.Input, summary.Marks))
	}

	if summary.RunID != "" {
		fmt.Fprintf(w, "Run recorded: %s\n", summary.RunID)
	}
	return nil
}

func outputRunJSON(w io.Writer, summary RunSummary, runErr error) error {
	response := CLIResponse{Status: "ok", Data: summary, RunID: summary.RunID}
	if runErr != nil {
		response.Status = "error"
		response.Error = &CLIError{Code: summary.ErrorCode, Message: summary.Error}
	}
	if err := writeJSON(w, response); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "machine failed", runErr)
	}
	return nil
}

// prompter asks for the run parameters on an interactive stream.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", WrapExitError(ExitCommandError, "no answer on stdin", err)
	}
	return strings.TrimSpace(line), nil
}

// algorithm asks until the answer names a built-in table.
func (p *prompter) algorithm() (*machine.Table, error) {
	for {
		fmt.Fprint(p.out, promptAlgorithm)
		answer, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if table, ok := tables.Choose(answer); ok {
			return table, nil
		}
		fmt.Fprintln(p.out, promptNotUnderstood)
	}
}

// positiveInt asks until the answer is an integer greater than zero.
func (p *prompter) positiveInt() (int, error) {
	for {
		fmt.Fprint(p.out, promptInput)
		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(answer); err == nil && n > 0 {
			return n, nil
		}
		fmt.Fprintln(p.out, promptNotPositive)
	}
}
