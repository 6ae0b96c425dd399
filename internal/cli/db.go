package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/unx2/internal/store"
)

// openRunLog opens an existing run log. Unlike store.Open it refuses to
// create a new database, so a mistyped path is reported instead of
// showing an empty log.
func openRunLog(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database: set --db or db in the config")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
		return nil, WrapExitError(ExitCommandError, "failed to access database", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// dbPath returns the --db flag value, falling back to the config.
func dbPath(flag string, opts *RootOptions) string {
	if flag != "" {
		return flag
	}
	return opts.settings().DB
}
