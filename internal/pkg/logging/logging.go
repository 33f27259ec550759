package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the global slog default logger. level is one of "debug",
// "info", "warn", "error" (default "info"); format is "json" or "text"
// (default "json"). Debug level also records source positions.
func Setup(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler).With("service", "wayfare"))
}
