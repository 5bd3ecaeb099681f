// Package logging builds the zerolog logger used across the engine and CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const permission = 0664

// Options selects level, format and destination.
type Options struct {
	Level  string
	Format string // "console", "json" or "" for console on a terminal
	File   string
	Writer io.Writer
}

// Logger is a configured logger plus the file it may own.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New builds a logger. Without a file or writer it logs to stderr.
func New(opts Options) (*Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	l := &Logger{}
	var w io.Writer = os.Stderr
	console := opts.Format == "console" || (opts.Format == "" && isatty.IsTerminal(os.Stderr.Fd()))
	switch {
	case opts.File != "":
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		w = zerolog.SyncWriter(f)
		console = opts.Format == "console"
	case opts.Writer != nil:
		w = opts.Writer
		console = opts.Format == "console"
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: opts.File != ""}
	}

	l.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
