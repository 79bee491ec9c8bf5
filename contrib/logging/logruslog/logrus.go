// Package logruslog adapts a github.com/sirupsen/logrus logger to the
// types.Logger interface.
//
// Key/value pairs become logrus fields. A trailing key without a value is
// logged under the "!BADKEY" field, the same convention zap uses.
package logruslog

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nalgoo/cluster-connection/types"
)

const badKey = "!BADKEY"

// Logger implements types.Logger on top of a logrus.FieldLogger.
type Logger struct {
	entry logrus.FieldLogger
}

// Compile-time assertion.
var _ types.Logger = (*Logger)(nil)

// New wraps a logrus logger or entry. A nil logger yields logrus.StandardLogger().
//
// Parameters:
//   - logger: *logrus.Logger or *logrus.Entry
//
// Returns:
//   - *Logger: The adapter
func New(logger logrus.FieldLogger) *Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Logger{entry: logger}
}

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

// Info logs a message at info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.entry.WithFields(fields(keysAndValues)).Info(msg)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.entry.WithFields(fields(keysAndValues)).Warn(msg)
}

// Error logs a message at error level.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.entry.WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []any) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 == len(keysAndValues) {
			f[badKey] = keysAndValues[i]
			break
		}

		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		f[key] = keysAndValues[i+1]
	}

	return f
}
