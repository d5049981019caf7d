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

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
}

// Logger wraps slog with the printf-style API used across the codebase.
type Logger struct {
	slogger *slog.Logger
	file    *os.File
}

// DefaultLogger writes info-level output to stdout only. Services fall back
// to it when no logger is injected.
var DefaultLogger = newConsole("info")

const (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// tagColors highlight the module prefix of tagged log lines.
var tagColors = map[string]string{
	"[BOOT]":     "\x1b[96m",
	"[HTTP]":     "\x1b[95m",
	"[VISION]":   "\x1b[34m",
	"[ANALYSIS]": "\x1b[94m",
	"[CACHE]":    "\x1b[92m",
	"[EVENTS]":   "\x1b[93m",
}

// textHandler renders "time [LEVEL] message" lines with ANSI colours.
type textHandler struct {
	writer io.Writer
	level  slog.Level
	mu     sync.Mutex
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")

	var levelStr, levelColor string
	switch r.Level {
	case slog.LevelDebug:
		levelStr, levelColor = "DEBUG", colorDebug
	case slog.LevelWarn:
		levelStr, levelColor = "WARN", colorWarn
	case slog.LevelError:
		levelStr, levelColor = "ERROR", colorError
	default:
		levelStr, levelColor = "INFO", colorInfo
	}

	msg := r.Message
	for tag, color := range tagColors {
		if strings.HasPrefix(msg, tag) {
			msg = color + tag + colorReset + msg[len(tag):]
			break
		}
	}

	_, err := fmt.Fprintf(
		h.writer,
		"%s%s%s [%s%s%s] %s\n",
		colorTime, timeStr, colorReset,
		levelColor, levelStr, colorReset,
		msg,
	)
	return err
}

func (h *textHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *textHandler) WithGroup(string) slog.Handler      { return h }

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

func newConsole(level string) *Logger {
	handler := &textHandler{writer: os.Stdout, level: parseLevel(level)}
	return &Logger{slogger: slog.New(handler)}
}

// New creates a logger writing to stdout and, when a directory is
// configured, to an append-only log file as well.
func New(cfg Config) (*Logger, error) {
	writer := io.Writer(os.Stdout)
	var file *os.File

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		name := cfg.Filename
		if name == "" {
			name = "server.log"
		}
		f, err := os.OpenFile(
			filepath.Join(cfg.Dir, name),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0o644,
		)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		writer = io.MultiWriter(os.Stdout, f)
	}

	handler := &textHandler{writer: writer, level: parseLevel(cfg.Level)}
	return &Logger{
		slogger: slog.New(handler),
		file:    file,
	}, nil
}

// Slog exposes the structured logger for integrations that want attrs.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// Close releases the log file, if any.
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

func (l *Logger) Debug(format string, args ...any) {
	l.slogger.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.slogger.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.slogger.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.slogger.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) DebugTag(tag, format string, args ...any) {
	l.Debug("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) InfoTag(tag, format string, args ...any) {
	l.Info("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) WarnTag(tag, format string, args ...any) {
	l.Warn("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) ErrorTag(tag, format string, args ...any) {
	l.Error("[%s] %s", tag, fmt.Sprintf(format, args...))
}
