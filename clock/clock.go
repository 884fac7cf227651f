package clock

import "time"

// Clock provides wall-clock time.
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by time.Now().
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Logger is a minimal logging interface satisfied by logger.Logger and
// status.Journal.
type Logger interface {
	InfoW(msg string, keysAndValues ...any)
	WarnW(msg string, keysAndValues ...any)
	ErrorW(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) InfoW(string, ...any)  {}
func (nopLogger) WarnW(string, ...any)  {}
func (nopLogger) ErrorW(string, ...any) {}
