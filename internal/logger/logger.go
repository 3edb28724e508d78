package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton logger configured with the provided level.
// The first call initializes the logger; subsequent calls ignore the level
// and return the already initialized instance.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level)
	})
	return globalLogger
}

// Log is the fire-and-forget entry point used by the furnace state machine.
// domain names the emitting subsystem (a state name, "queue", "fsm").
func (l *Logger) Log(level, domain, message string) {
	if l == nil || l.SugaredLogger == nil {
		return
	}
	switch level {
	case DebugLevel:
		l.Debugw(message, "domain", domain)
	case WarnLevel:
		l.Warnw(message, "domain", domain)
	case ErrorLevel:
		l.Errorw(message, "domain", domain)
	default:
		l.Infow(message, "domain", domain)
	}
}
