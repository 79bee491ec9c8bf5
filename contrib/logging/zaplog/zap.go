// Package zaplog adapts a go.uber.org/zap logger to the types.Logger interface.
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	conn, _ := clusterconn.New(nodes, connector,
//	    clusterconn.WithLogger(zaplog.New(logger)),
//	)
package zaplog

import (
	"go.uber.org/zap"

	"github.com/nalgoo/cluster-connection/types"
)

// Logger implements types.Logger on top of a *zap.SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// Compile-time assertion.
var _ types.Logger = (*Logger)(nil)

// New wraps a zap logger. A nil logger yields zap.NewNop().
//
// Parameters:
//   - logger: The zap logger to write to
//
// Returns:
//   - *Logger: The adapter
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Logger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// NewSugared wraps an existing sugared logger.
func NewSugared(sugar *zap.SugaredLogger) *Logger {
	if sugar == nil {
		sugar = zap.NewNop().Sugar()
	}

	return &Logger{sugar: sugar}
}

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs a message at info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs a message at error level.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}
