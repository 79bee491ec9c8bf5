package types

// Logger is the structured logging interface used throughout the library.
//
// Messages carry alternating key/value pairs, the same calling convention as
// zap.SugaredLogger's "w" methods. Adapters for zap and logrus live under
// contrib/logging.
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at info level.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at warn level.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at error level.
	Error(msg string, keysAndValues ...any)
}
