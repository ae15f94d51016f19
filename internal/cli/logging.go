package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// logging bundles the loggers a command uses.
type logging struct {
	// Logger writes text to the terminal and, with --log-file, JSON to
	// the file.
	Logger *slog.Logger

	// Trace writes to the log file only. Nil without --log-file.
	Trace *slog.Logger

	file *os.File
}

// Close flushes and closes the log file, if any.
func (l *logging) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// newLogging builds the command loggers. Verbose lowers the terminal
// level to Debug; the file always receives Debug.
func newLogging(opts *RootOptions, terminal io.Writer) (*logging, error) {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(terminal, &slog.HandlerOptions{Level: level}),
	}

	l := &logging{}
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
		handlers = append(handlers, file)
		l.file = f
		l.Trace = slog.New(file)
	}

	l.Logger = slog.New(slogmulti.Fanout(handlers...))
	return l, nil
}
