// Package obs holds the process-wide structured logger.
package obs

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the global structured logger. It starts as slog.Default so
// packages can log before Init runs (tests never call it).
var Logger = slog.Default()

// Init installs a JSON handler on stdout at the given level ("debug",
// "info", "warn", "error"; anything else means info).
func Init(level string) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(level)})
	Logger = slog.New(h)
	slog.SetDefault(Logger)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
