package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/unx2/internal/machine"
	"github.com/roach88/unx2/internal/tables"
	"github.com/roach88/unx2/internal/trace"
)

// TableInfo describes a table in command output.
type TableInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Start       string          `json:"start"`
	States      []string        `json:"states"`
	Hash        string          `json:"hash"`
	Rules       []trace.RuleDoc `json:"rules"`
}

func newTableInfo(t *machine.Table) (TableInfo, error) {
	hash, err := trace.TableHash(t)
	if err != nil {
		return TableInfo{}, err
	}
	states := make([]string, 0, len(t.States()))
	for _, s := range t.States() {
		states = append(states, string(s))
	}
	return TableInfo{
		Name:        t.Name(),
		Description: t.Description(),
		Start:       string(t.Start()),
		States:      states,
		Hash:        hash,
		Rules:       trace.DocFromTable(t).Rules,
	}, nil
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables [name]",
		Short: "List the built-in transition tables",
		Long: `List the built-in transition tables, or print the rules of one.

The name may be a full table name or the P/m shorthand of the run prompt.

Examples:
  unx2 tables
  unx2 tables penrose
  unx2 tables m --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runTables(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	list := tables.All()
	if len(args) == 1 {
		t, err := tables.Select(args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "unknown table", err)
		}
		list = []*machine.Table{t}
	}

	infos := make([]TableInfo, 0, len(list))
	for _, t := range list {
		info, err := newTableInfo(t)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to describe table %s", t.Name()), err)
		}
		infos = append(infos, info)
	}

	if formatter.JSON() {
		return formatter.Success(infos)
	}

	w := formatter.Writer
	if len(args) == 0 {
		for _, info := range infos {
			fmt.Fprintf(w, "%-10s %d rule(s), %d state(s)  %s\n",
				info.Name, len(info.Rules), len(info.States), info.Description)
		}
		return nil
	}
	writeTableRules(w, list[0])
	return nil
}

// writeTableRules prints a table's header and one rule per line.
func writeTableRules(w io.Writer, t *machine.Table) {
	fmt.Fprintf(w, "%s: %s\n", t.Name(), t.Description())
	fmt.Fprintf(w, "start state: %s\n\n", t.Start())
	for _, e := range t.Entries() {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
