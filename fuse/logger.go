package fuse

import (
	"log"
	"os"
)

// Logger is the diagnostics collaborator the pass emits through: warn
// for unexpected-but-recoverable events (a revisited operator, a gap
// widened again by backward propagation), error immediately before an
// abort.
type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// stdLogger wraps the standard library logger: plain log/fmt, no
// structured logging dependency.
type stdLogger struct {
	l *log.Logger
}

// NewStdLogger returns a Logger backed by the standard library, writing to
// os.Stderr with a "batchfuse: " prefix.
func NewStdLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "batchfuse: ", log.LstdFlags)}
}

func (s *stdLogger) Warnf(format string, args ...any) {
	s.l.Printf("WARN "+format, args...)
}

func (s *stdLogger) Errorf(format string, args ...any) {
	s.l.Printf("ERROR "+format, args...)
}

// NopLogger discards every message. Useful in tests that assert on
// returned errors rather than log output.
type NopLogger struct{}

// Warnf implements Logger.
func (NopLogger) Warnf(string, ...any) {}

// Errorf implements Logger.
func (NopLogger) Errorf(string, ...any) {}
