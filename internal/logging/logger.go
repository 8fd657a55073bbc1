// Package logging provides structured logging with file and console output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with optional file output.
type Logger struct {
	zlog zerolog.Logger
	file *os.File
}

// Config holds logger configuration.
type Config struct {
	LogDir  string // Directory for log files; empty disables file output
	Level   string // Minimum log level: debug, info, warn, error
	Console bool   // Also log to console
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LogDir:  filepath.Join(home, ".zara", "logs"),
		Level:   "info",
		Console: true,
	}
}

// New creates a Logger with file and console output.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var writers []io.Writer
	var file *os.File

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}

		logPath := filepath.Join(cfg.LogDir, fmt.Sprintf("zara_%s.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	zlog := zerolog.New(io.MultiWriter(writers...)).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("app", "zara").
		Logger()

	return &Logger{zlog: zlog, file: file}, nil
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Close closes the log file if one is open.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func withData(e *zerolog.Event, component string, data map[string]interface{}) *zerolog.Event {
	e = e.Str("component", component)
	for k, v := range data {
		e = e.Interface(k, v)
	}
	return e
}

// Debug logs a debug message.
func (l *Logger) Debug(component, message string, data map[string]interface{}) {
	withData(l.zlog.Debug(), component, data).Msg(message)
}

// Info logs an info message.
func (l *Logger) Info(component, message string, data map[string]interface{}) {
	withData(l.zlog.Info(), component, data).Msg(message)
}

// Warn logs a warning message.
func (l *Logger) Warn(component, message string, data map[string]interface{}) {
	withData(l.zlog.Warn(), component, data).Msg(message)
}

// Error logs an error message.
func (l *Logger) Error(component, message string, err error, data map[string]interface{}) {
	e := withData(l.zlog.Error(), component, data)
	if err != nil {
		e = e.Err(err)
	}
	e.Msg(message)
}
