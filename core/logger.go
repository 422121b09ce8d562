package core

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger interface for structured logging.
// Implementations can provide custom logging behavior; the default sink is
// zerolog writing to stderr.
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger writing to stderr with
// timestamps.
func NewZerologLogger() *ZerologLogger {
	return &ZerologLogger{
		l: zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
}

// WrapZerolog adapts an existing zerolog.Logger.
func WrapZerolog(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{l: l}
}

func (z *ZerologLogger) Debug(msg string, fields ...Field) { z.emit(z.l.Debug(), msg, fields) }
func (z *ZerologLogger) Info(msg string, fields ...Field)  { z.emit(z.l.Info(), msg, fields) }
func (z *ZerologLogger) Warn(msg string, fields ...Field)  { z.emit(z.l.Warn(), msg, fields) }
func (z *ZerologLogger) Error(msg string, fields ...Field) { z.emit(z.l.Error(), msg, fields) }

func (z *ZerologLogger) emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

// NoOpLogger is a logger that discards all log messages.
// Useful for tests or when logging is not desired.
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
