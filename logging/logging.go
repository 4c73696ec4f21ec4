// Package logging wraps the standard logger with a debug gate and per-session prefixes.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Flags used by every logger the process creates
const Flags = log.LstdFlags | log.Lmicroseconds

// Log file rotation
const (
	LogFileName = "tngame.log"
	MaxLogSize  = 10 * 1024 * 1024
)

// Logger is a prefixed *log.Logger whose debug output can be switched off
type Logger struct {
	l     *log.Logger
	debug bool
}

// New creates a logger writing to w
func New(w io.Writer, prefix string, debug bool) *Logger {
	return &Logger{l: log.New(w, prefix, Flags), debug: debug}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{l: log.New(io.Discard, "", 0)}
}

// Printf logs unconditionally
func (lg *Logger) Printf(format string, v ...any) {
	lg.l.Printf(format, v...)
}

// Debugf logs only when debug is enabled
func (lg *Logger) Debugf(format string, v ...any) {
	if lg.debug {
		lg.l.Printf("debug: "+format, v...)
	}
}

// DebugEnabled reports whether Debugf produces output
func (lg *Logger) DebugEnabled() bool {
	return lg.debug
}

// With derives a logger sharing the same output with prefix appended
func (lg *Logger) With(prefix string) *Logger {
	return &Logger{
		l:     log.New(lg.l.Writer(), lg.l.Prefix()+prefix, lg.l.Flags()),
		debug: lg.debug,
	}
}

// Writer returns the underlying output
func (lg *Logger) Writer() io.Writer {
	return lg.l.Writer()
}

// OpenFile opens dir/LogFileName for appending, rotating it first when it exceeds MaxLogSize
// The rotated file keeps a timestamp suffix
func OpenFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(dir, LogFileName)
	if info, err := os.Stat(path); err == nil && info.Size() > MaxLogSize {
		rotated := filepath.Join(dir, fmt.Sprintf("tngame-%s.log", time.Now().Format("20060102-150405")))
		if err := os.Rename(path, rotated); err != nil {
			return nil, fmt.Errorf("rotate log: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return f, nil
}
