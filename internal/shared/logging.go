package shared

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogger builds the process logger on stderr and makes it the default.
// Stdout is left to command output.
func InitLogger(format, level string) *slog.Logger {
	logger := NewLogger(os.Stderr, format, level)
	slog.SetDefault(logger)
	return logger
}

func NewLogger(w io.Writer, format, level string) *slog.Logger {
	var h slog.Handler
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if strings.ToLower(format) == "text" {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h).With("service", "realitycheck")
}
