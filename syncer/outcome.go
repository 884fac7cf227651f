package syncer

import (
	"fmt"
	"time"
)

// Kind is the terminal result of a session.
type Kind int

const (
	KindSuccess Kind = iota
	KindUncertain
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindUncertain:
		return "uncertain"
	default:
		return "failed"
	}
}

// Outcome is the single structured result a session produces. The
// presentation layer decides how to render it.
type Outcome struct {
	SessionID string
	Server    string
	Kind      Kind
	// Err is nil on success, ErrResyncUncertain when uncertain, and the
	// fatal or unexpected error otherwise.
	Err error
	// Warnings are the non-fatal stage errors met along the way.
	Warnings   []error
	Stage      int
	Attempts   int
	Simulated  bool
	StartedAt  time.Time
	FinishedAt time.Time
	// Output is the text of the last resync attempt.
	Output string
}

// Severity classifies the outcome for notification purposes.
func (o Outcome) Severity() Severity {
	return Classify(o.Err)
}

// Message is a short human-readable summary.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		if o.Simulated {
			return fmt.Sprintf("simulated synchronization with %s completed", o.Server)
		}
		if o.Attempts > 1 {
			return fmt.Sprintf("time synchronized with server %s (second attempt)", o.Server)
		}
		return fmt.Sprintf("time synchronized with server %s", o.Server)
	case KindUncertain:
		return "synchronization may have failed; check the logs for details"
	default:
		return fmt.Sprintf("synchronization failed: %v", o.Err)
	}
}
