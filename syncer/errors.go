package syncer

import (
	"errors"
	"fmt"

	"github.com/tnicklin/time_sync/timeservice"
)

var (
	ErrPrivilegeDenied        = errors.New("time synchronization requires administrator privileges")
	ErrAlreadyRunning         = errors.New("synchronization already in progress")
	ErrServiceQueryFailed     = errors.New("time service status query failed")
	ErrServiceEnableFailed    = errors.New("time service could not be enabled")
	ErrServiceStopWarning     = errors.New("time service did not stop cleanly")
	ErrServiceConfigureFailed = errors.New("time server configuration failed")
	ErrServiceStartFailed     = errors.New("time service could not be started")
	ErrResyncUncertain        = errors.New("resynchronization may have failed")
	ErrUnexpected             = errors.New("unexpected synchronization error")
)

// StageError is a classified failure of one stage. errors.Is matches both
// its Kind sentinel and the underlying error.
type StageError struct {
	Stage  int
	Op     string
	Kind   error
	Result timeservice.Result
	Err    error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("stage %d (%s): %v", e.Stage, e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Result.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.Result.ExitCode)
	}
	return msg
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UnexpectedError wraps a failure nothing in the stage sequence anticipated,
// such as a command that could not be executed or a panic.
type UnexpectedError struct {
	Stage int
	Err   error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%v at stage %d: %v", ErrUnexpected, e.Stage, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

func (e *UnexpectedError) Is(target error) bool { return target == ErrUnexpected }

// Severity tells the presentation layer how to surface an error.
type Severity int

const (
	SeverityNone Severity = iota
	// SeverityWarning is logged only; the sequence continued.
	SeverityWarning
	// SeverityUncertain deserves a non-blocking notification.
	SeverityUncertain
	// SeverityFatal stopped the sequence and deserves a blocking notification.
	SeverityFatal
	// SeverityUnexpected is like fatal but was not anticipated.
	SeverityUnexpected
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityUncertain:
		return "uncertain"
	case SeverityFatal:
		return "fatal"
	case SeverityUnexpected:
		return "unexpected"
	default:
		return "none"
	}
}

// Blocking reports whether the error should interrupt the user.
func (s Severity) Blocking() bool {
	return s == SeverityFatal || s == SeverityUnexpected
}

// Classify maps an error to its severity.
func Classify(err error) Severity {
	switch {
	case err == nil:
		return SeverityNone
	case errors.Is(err, ErrUnexpected):
		return SeverityUnexpected
	case errors.Is(err, ErrPrivilegeDenied),
		errors.Is(err, ErrAlreadyRunning),
		errors.Is(err, ErrServiceEnableFailed):
		return SeverityFatal
	case errors.Is(err, ErrResyncUncertain):
		return SeverityUncertain
	case errors.Is(err, ErrServiceQueryFailed),
		errors.Is(err, ErrServiceStopWarning),
		errors.Is(err, ErrServiceConfigureFailed),
		errors.Is(err, ErrServiceStartFailed):
		return SeverityWarning
	default:
		return SeverityUnexpected
	}
}
