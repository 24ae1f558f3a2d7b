package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger writing to stdout at the given level.
func New(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
