package port

// Fields carries structured data into the log.
type Fields map[string]interface{}

// LoggerPort is the logging contract the core depends on; adapters bind it
// to slog, fluentd or both.
type LoggerPort interface {
	Debug(msg string, fields Fields)

	Info(msg string, fields Fields)

	Warn(msg string, fields Fields)

	Error(msg string, err error, fields Fields)

	// WithFields returns a new logger with the fields already attached.
	WithFields(fields Fields) LoggerPort
}
