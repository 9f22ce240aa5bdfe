// Package logger provides the logging interface shared by all tunsel
// components. Backends include console output, a rotating log file for the
// daemon, and a recording logger for tests.
package logger

import (
	"fmt"
	"log"
)

// Logger is the interface every component logs through.
type Logger interface {
	// Info logs an informational message (e.g., "schedule armed").
	Info(format string, args ...interface{})

	// Warning logs a warning message (e.g., "timer fired for unknown id").
	Warning(format string, args ...interface{})

	// Error logs an error message (e.g., "failed to persist schedule").
	Error(format string, args ...interface{})

	// Close releases resources held by the logger. Safe to call more
	// than once; loggers without resources return nil.
	Close() error
}

// Console wraps a stdlib *log.Logger for terminal output.
type Console struct {
	l *log.Logger
}

// NewConsole creates a logger writing through the given *log.Logger.
func NewConsole(l *log.Logger) *Console {
	return &Console{l: l}
}

func (c *Console) Info(format string, args ...interface{}) {
	c.l.Printf("[INFO] "+format, args...)
}

func (c *Console) Warning(format string, args ...interface{}) {
	c.l.Printf("[WARNING] "+format, args...)
}

func (c *Console) Error(format string, args ...interface{}) {
	c.l.Printf("[ERROR] "+format, args...)
}

func (c *Console) Close() error { return nil }

// Nop discards all messages.
type Nop struct{}

// NewNop creates a logger that discards everything.
func NewNop() *Nop { return &Nop{} }

func (Nop) Info(format string, args ...interface{})    {}
func (Nop) Warning(format string, args ...interface{}) {}
func (Nop) Error(format string, args ...interface{})   {}
func (Nop) Close() error                               { return nil }

// Recorder implements Logger for tests, keeping every formatted message.
type Recorder struct {
	Infos    []string
	Warnings []string
	Errors   []string
	Closed   bool
}

// NewRecorder creates an empty recording logger.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Info(format string, args ...interface{}) {
	r.Infos = append(r.Infos, fmt.Sprintf(format, args...))
}

func (r *Recorder) Warning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Recorder) Error(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Recorder) Close() error {
	r.Closed = true
	return nil
}

var (
	_ Logger = (*Console)(nil)
	_ Logger = (*Nop)(nil)
	_ Logger = (*Recorder)(nil)
)
