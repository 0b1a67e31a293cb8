package main

import (
	"log/slog"
	"os"
)

// newLogger logs as text on a terminal and JSON otherwise. Logs go to
// stderr so stdout stays free for reports.
func newLogger(w *os.File, verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(w) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler), level
}

func setupLogging(verbose bool) {
	logger, level := newLogger(os.Stderr, verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
