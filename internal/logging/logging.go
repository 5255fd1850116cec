// ABOUTME: Structured logger construction for littlelemon.
// ABOUTME: Wraps charmbracelet/log with the app prefix, level parsing, and JSON output.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New builds a logger writing to w at the named level.
// An empty level means info; an empty format means text.
func New(w io.Writer, level, format string) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		lvl = parsed
	}

	opts := log.Options{
		Prefix:          "littlelemon",
		Level:           lvl,
		ReportTimestamp: true,
	}
	switch strings.ToLower(format) {
	case "", FormatText:
		opts.Formatter = log.TextFormatter
	case FormatJSON:
		opts.Formatter = log.JSONFormatter
	default:
		return nil, fmt.Errorf("unknown log format %q (use text or json)", format)
	}

	return log.NewWithOptions(w, opts), nil
}

// Discard returns a logger that drops everything. Library packages use it
// when the caller supplies no logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
