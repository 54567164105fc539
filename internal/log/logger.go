// Package log provides structured logging for the BioVault daemon and CLI,
// built on log/slog.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler used for output.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// LevelTrace is finer-grained than slog.LevelDebug, used for per-poll
// shared-tree reads and per-line engine log mirroring.
const LevelTrace = slog.Level(-8)

// Field key constants shared across components so grep'ing the audit/log
// stream for one entity is consistent everywhere.
const (
	ProfileIDKey = "profile_id"
	RunIDKey     = "run_id"
	SessionIDKey = "session_id"
	StepIDKey    = "step_id"
	CommandKey   = "cmd"
	EventKey     = "event"
)

// Config controls logger construction.
type Config struct {
	Level     slog.Level
	Format    Format
	Output    *os.File
	AddSource bool
}

// DefaultConfig returns the logger configuration used when nothing else is
// specified.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

// FromEnv builds a Config from environment variables:
// BIOVAULT_DEBUG (takes precedence, forces debug level + source),
// BIOVAULT_LOG_LEVEL, BIOVAULT_LOG_FORMAT, BIOVAULT_DESKTOP_LOG_FILE.
func FromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("BIOVAULT_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	} else if lvl, ok := parseLevel(os.Getenv("BIOVAULT_LOG_LEVEL")); ok {
		cfg.Level = lvl
	}

	switch strings.ToLower(os.Getenv("BIOVAULT_LOG_FORMAT")) {
	case "text":
		cfg.Format = FormatText
	case "json":
		cfg.Format = FormatJSON
	}

	if path := os.Getenv("BIOVAULT_DESKTOP_LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
			cfg.Output = f
		}
	}

	return cfg
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New builds a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == FormatText {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}

// WithProfile annotates logger with the current profile id.
func WithProfile(logger *slog.Logger, profileID string) *slog.Logger {
	return logger.With(slog.String(ProfileIDKey, profileID))
}

// WithRun annotates logger with a flow run id.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With(slog.String(RunIDKey, runID))
}

// WithSession annotates logger with a multiparty session id.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With(slog.String(SessionIDKey, sessionID))
}

// WithStep annotates logger with a step id, chaining onto an existing run
// or session logger.
func WithStep(logger *slog.Logger, stepID string) *slog.Logger {
	return logger.With(slog.String(StepIDKey, stepID))
}

// Trace logs at LevelTrace, a no-op unless the handler has been configured
// to emit it.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if !logger.Enabled(context.Background(), LevelTrace) {
		return
	}
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// SanitizeToken returns a display-safe version of a bearer token or secret,
// showing only a short prefix/suffix.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "***" + token[len(token)-4:]
}
