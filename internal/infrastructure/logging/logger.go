package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/pawl-core/internal/infrastructure/config"
)

// serviceName is attached to every log record.
const serviceName = "pawl"

// redacted replaces the value of any credential-bearing attribute.
const redacted = "[REDACTED]"

// sensitiveKeys are attribute names whose values never reach the output,
// whichever component logs them. Record keys (usernames, network IDs) are
// not secret and pass through.
var sensitiveKeys = map[string]bool{
	"password":   true,
	"passhash":   true,
	"secret":     true,
	"token":      true,
	"api_key":    true,
	"shared_key": true,
}

// redactCredentials is the slog ReplaceAttr hook.
func redactCredentials(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	return a
}

// Logger wraps slog.Logger with Pawl-specific defaults.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the specified configuration.
//
// Records are JSON unless cfg.Format is "text", carry service and version
// attributes, and have credential attributes redacted.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}
	return NewWithWriter(cfg, version, output)
}

// NewWithWriter is New with an explicit destination, ignoring cfg.Output.
// Tests use it to capture records.
func NewWithWriter(cfg config.LoggingConfig, version string, output io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: redactCredentials,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel maps debug, info, warn and error; anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a Logger that adds args to every record, typically
// "component", name.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default creates a logger for use before configuration is loaded.
// It writes JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
