package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/unx2/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled tables.
type CompilationResult struct {
	Files  int         `json:"files"`
	Tables []TableInfo `json:"tables"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Validate CUE and YAML transition tables",
		Long: `Compile transition tables from a .cue/.yaml file or a directory.

Every table is checked for duplicate (state, symbol) keys, illegal
symbols and illegal moves. All errors are reported, with their source
position, before the command exits.

Exit codes:
  0 - All tables compiled
  2 - A source could not be loaded or a table is invalid

Examples:
  unx2 compile ./tables
  unx2 compile ./tables/flip.cue --format json
  unx2 compile ./tables -o tables.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled tables as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, loadErrors := compiler.Load(path)
	if loaded == nil {
		return outputCompileError(formatter, ErrCodeLoadFailed, errors.Join(loadErrors...).Error())
	}

	formatter.VerboseLog("Found %d table file(s) in %s", loaded.FileCount, path)
	for _, t := range loaded.Tables {
		formatter.VerboseLog("Compiled table: %s", t.Name())
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := CompilationResult{
		Files:  loaded.FileCount,
		Tables: make([]TableInfo, 0, len(loaded.Tables)),
	}
	for _, t := range loaded.Tables {
		info, err := newTableInfo(t)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric, err.Error())
		}
		result.Tables = append(result.Tables, info)
	}

	if opts.Output != "" {
		if err := writeTablesToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d table(s) from %d file(s)\n\n", len(result.Tables), result.Files)
	for _, t := range result.Tables {
		fmt.Fprintf(w, "  %s: %d rule(s), %d state(s), start %s\n",
			t.Name, len(t.Rules), len(t.States), t.Start)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote tables to %s\n", outputFile)
	}
	return nil
}

// outputCompileError outputs a single error that stopped compilation.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs every table error.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			cliErrors[i] = CLIError{Code: errorCode(err), Message: err.Error()}
		}

		if err := writeJSON(formatter.Writer, CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Compilation failed")
	fmt.Fprintln(w)
	for _, err := range errs {
		fmt.Fprintf(w, "  %s: %v\n", errorCode(err), err)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func writeTablesToFile(result CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result.Tables, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tables: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
