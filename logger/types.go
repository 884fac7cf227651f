package logger

// Logger defines the leveled key-value logging interface every component
// receives by injection. status.Journal implements it as well, so a
// component can log into the status channel without knowing about it.
type Logger interface {
	DebugW(msg string, keysAndValues ...any)
	InfoW(msg string, keysAndValues ...any)
	WarnW(msg string, keysAndValues ...any)
	ErrorW(msg string, keysAndValues ...any)
	Sync() error
}
