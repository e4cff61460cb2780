package confstore

import "time"

// LogEvent describes one dump or load pass for logging.
type LogEvent struct {
	Op       string
	Section  string
	Changed  int
	Duration time.Duration
	Err      error
}

// Logger records store events.
type Logger interface {
	LogStore(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogStore implements Logger.
func (f LoggerFunc) LogStore(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogStore(LogEvent) {}
