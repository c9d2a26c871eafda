package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the file created inside the log directory.
const LogFileName = "session.log"

var levels = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// logFile is the open log file shared by a logger and all of its children.
type logFile struct {
	mu sync.Mutex
	f  *os.File
}

func (lf *logFile) close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.f == nil {
		return nil
	}
	f := lf.f
	lf.f = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// Logger writes JSON log lines tagged with the session, round, actor and
// phase they concern. Child loggers share the parent's output.
// It is safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	file *logFile // nil unless the logger owns a file
}

// NewLogger creates a Logger that appends JSON lines to {dir}/session.log.
// If dir is empty, logs are written to stderr.
//
// Messages below level are dropped; unknown levels mean INFO.
func NewLogger(dir string, level string) (*Logger, error) {
	if dir == "" {
		return NewLoggerWriter(os.Stderr, level), nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := NewLoggerWriter(f, level)
	l.file = &logFile{f: f}
	return l, nil
}

// NewLoggerWriter creates a Logger writing JSON lines to w.
func NewLoggerWriter(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levels[ParseLevel(level)]})
	return &Logger{slog: slog.New(handler)}
}

// NopLogger returns a Logger that discards all log output.
func NopLogger() *Logger {
	return &Logger{slog: slog.New(slog.DiscardHandler)}
}

// WithSession returns a child Logger tagged with the game session ID.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.child(slog.String("session_id", sessionID))
}

// WithRound returns a child Logger tagged with a round number.
func (l *Logger) WithRound(round int) *Logger {
	return l.child(slog.Int("round", round))
}

// WithActor returns a child Logger tagged with the acting side.
func (l *Logger) WithActor(actor string) *Logger {
	return l.child(slog.String("actor", actor))
}

// WithPhase returns a child Logger tagged with the turn phase.
func (l *Logger) WithPhase(phase string) *Logger {
	return l.child(slog.String("phase", phase))
}

// With returns a child Logger carrying alternating key-value pairs. Pairs
// whose key is not a string are skipped.
func (l *Logger) With(args ...any) *Logger {
	attrs := make([]any, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			attrs = append(attrs, slog.Any(key, args[i+1]))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return l.child(attrs...)
}

func (l *Logger) child(attrs ...any) *Logger {
	return &Logger{slog: l.slog.With(attrs...), file: l.file}
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }

// Info logs at INFO level.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args) }

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args) }

// Error logs at ERROR level.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *Logger) log(level slog.Level, msg string, args []any) {
	l.slog.Log(context.Background(), level, msg, args...)
}

// Close syncs and closes the log file. Closing again, or closing any child
// of the same logger, is a no-op. Loggers without a file are unaffected.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.close()
}

// ParseLevel normalizes a level string to one of the Level constants.
// Returns LevelInfo if the level string is not recognized.
func ParseLevel(level string) string {
	upper := strings.ToUpper(strings.TrimSpace(level))
	if _, ok := levels[upper]; ok {
		return upper
	}
	return LevelInfo
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
