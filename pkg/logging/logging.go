// Package logging sets up the process logger. Warnings go to stderr in
// text form so they do not drown interactive output; with debugging
// enabled every record is shown. An optional log file receives all
// records as JSON.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options configures New.
type Options struct {
	Debug bool
	// File, when set, receives every record at debug level as JSON.
	File string
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// New builds a logger from opts. The returned function closes the log
// file, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	w := opts.Stderr
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if opts.Debug {
		level = slog.LevelDebug
	}
	console := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: dropTime,
	})

	closeFn := func() error { return nil }
	var file slog.Handler
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, err
		}
		file = slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
		closeFn = f.Close
	}
	return slog.New(NewFanoutHandler(console, file)), closeFn, nil
}

// dropTime removes the timestamp from console records.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
