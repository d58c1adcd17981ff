package testutil

import (
	"io"
	"log/slog"
)

// NewLogger returns a logger that discards all output, for use in tests.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
