package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the log level
type Level int

const (
	LevelDebug Level = iota // Debug information (only shown with --verbose)
	LevelInfo               // Important steps
	LevelWarn               // Recoverable problems (quota, retries left to the user)
	LevelError              // Error messages
)

// ParseLevel maps a level name from config or env to a Level.
// Unknown names fall back to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger provides leveled, structured logging on top of zerolog.
// Chat output never goes through it; it writes to stderr by default.
type Logger struct {
	writer    io.Writer
	level     Level
	colorMode bool
	zl        zerolog.Logger
}

// NewLogger creates a new Logger instance
func NewLogger(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := &Logger{
		writer:    w,
		level:     level,
		colorMode: true,
	}
	l.rebuild()
	return l
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{writer: io.Discard, level: LevelError, zl: zerolog.Nop()}
}

// SetColorMode enables or disables colored output
func (l *Logger) SetColorMode(enabled bool) {
	l.colorMode = enabled
	l.rebuild()
}

func (l *Logger) rebuild() {
	out := zerolog.ConsoleWriter{
		Out:        l.writer,
		TimeFormat: "15:04:05",
		NoColor:    !l.colorMode,
	}
	l.zl = zerolog.New(out).Level(l.level.zerolog()).With().Timestamp().Logger()
}

// With returns a child logger that stamps every entry with key=value
func (l *Logger) With(key, value string) *Logger {
	child := *l
	child.zl = l.zl.With().Str(key, value).Logger()
	return &child
}

// Zerolog exposes the underlying logger for packages that log structured fields directly
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// Debug logs debug information (only shown in verbose mode)
func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Info logs general information
func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

// Warn logs a recoverable problem
func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

// ToolCall logs a tool call with its parameters
func (l *Logger) ToolCall(toolName string, params string) {
	l.zl.Info().
		Str("tool", toolName).
		Str("args", formatJSON(params)).
		Msg("🔧 tool call")
}

// ToolResult logs a tool execution result. Output is clipped to two lines.
func (l *Logger) ToolResult(toolName string, success bool, output string, duration time.Duration) {
	ev := l.zl.Info()
	msg := "📊 tool result"
	if !success {
		ev = l.zl.Warn()
		msg = "❌ tool failed"
	}
	ev.Str("tool", toolName).
		Bool("success", success).
		Dur("duration", duration).
		Str("output", clip(output, 2, 500)).
		Msg(msg)
}

// SessionStart logs the creation of a conversation session
func (l *Logger) SessionStart(userID, sessionID string) {
	l.zl.Info().Str("user_id", userID).Str("session_id", sessionID).Msg("🚀 session started")
}

// SessionEnd logs the end of a conversation with statistics
func (l *Logger) SessionEnd(duration time.Duration, turns int) {
	l.zl.Info().
		Str("duration", duration.Round(time.Millisecond).String()).
		Int("turns", turns).
		Msg("✨ session ended")
}

// clip limits output to maxLines lines and maxLength bytes
func clip(output string, maxLines, maxLength int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	display := output
	truncatedLines := false

	if len(lines) > maxLines {
		display = strings.Join(lines[:maxLines], "\n")
		truncatedLines = true
	}

	if len(display) > maxLength {
		display = display[:maxLength] + "..."
	} else if truncatedLines {
		display += "\n..."
	}
	return display
}

// formatJSON keeps short JSON compact and pretty-prints long JSON
func formatJSON(jsonStr string) string {
	compact := strings.TrimSpace(jsonStr)
	if len(compact) < 80 {
		return compact
	}

	var obj any
	if err := json.Unmarshal([]byte(compact), &obj); err != nil {
		return compact
	}

	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return compact
	}
	return string(pretty)
}

// FormatArgs renders tool arguments as compact JSON for one-line notices
func FormatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}
