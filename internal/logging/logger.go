// Package logging provides the structured logging abstraction used across the
// ledger pipeline. Components depend on the Logger interface; logrus is wired
// in only by the container.
package logging

// Logger defines structured logging with key/value fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithError returns a logger that attaches err to every entry.
	WithError(err error) Logger

	// WithField returns a logger with a single field attached.
	WithField(key string, value interface{}) Logger

	// WithFields returns a logger with multiple fields attached.
	WithFields(fields ...Field) Logger
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for building a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
