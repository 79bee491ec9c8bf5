// Package logging provides internal logging utilities.
package logging

import "github.com/nalgoo/cluster-connection/types"

// NopLogger is a no-op logger that discards all log messages.
//
// This is used as the default logger when no logger is configured,
// avoiding nil checks throughout the codebase.
type NopLogger struct{}

// Compile-time assertion that NopLogger implements types.Logger.
var _ types.Logger = (*NopLogger)(nil)

// NewNopLogger creates a new no-op logger.
//
// Returns:
//   - *NopLogger: A logger that discards all messages
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// Debug discards the message.
func (l *NopLogger) Debug(_ string, _ ...any) {}

// Info discards the message.
func (l *NopLogger) Info(_ string, _ ...any) {}

// Warn discards the message.
func (l *NopLogger) Warn(_ string, _ ...any) {}

// Error discards the message.
func (l *NopLogger) Error(_ string, _ ...any) {}

// fieldLogger prepends fixed key/value pairs to every call.
type fieldLogger struct {
	next   types.Logger
	fields []any
}

// With returns a logger that adds keysAndValues in front of the pairs passed
// to each call. A NopLogger is returned unchanged.
//
// Parameters:
//   - l: The underlying logger
//   - keysAndValues: Fixed pairs, e.g. "connection", id
//
// Returns:
//   - types.Logger: The wrapped logger
func With(l types.Logger, keysAndValues ...any) types.Logger {
	if _, ok := l.(*NopLogger); ok || len(keysAndValues) == 0 {
		return l
	}
	if fl, ok := l.(*fieldLogger); ok {
		return &fieldLogger{next: fl.next, fields: join(fl.fields, keysAndValues)}
	}

	return &fieldLogger{next: l, fields: keysAndValues}
}

func (l *fieldLogger) Debug(msg string, keysAndValues ...any) {
	l.next.Debug(msg, join(l.fields, keysAndValues)...)
}

func (l *fieldLogger) Info(msg string, keysAndValues ...any) {
	l.next.Info(msg, join(l.fields, keysAndValues)...)
}

func (l *fieldLogger) Warn(msg string, keysAndValues ...any) {
	l.next.Warn(msg, join(l.fields, keysAndValues)...)
}

func (l *fieldLogger) Error(msg string, keysAndValues ...any) {
	l.next.Error(msg, join(l.fields, keysAndValues)...)
}

func join(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	out = append(out, a...)

	return append(out, b...)
}
