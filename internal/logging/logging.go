// Package logging builds the slog loggers used by the CLI.
//
// Logs always go to a separate writer (stderr in practice) so that the
// rendered tape on stdout stays clean.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrKey is the attribute key used for errors.
const ErrKey = "err"

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// New returns a text logger writing to w at the given level.
func New(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Err returns an attribute carrying err under ErrKey.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(ErrKey, "")
	}
	return slog.String(ErrKey, err.Error())
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == "error" {
		a.Key = ErrKey
	}
	return a
}
