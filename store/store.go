package store

import (
	"context"
	"time"
)

// OffsetStore persists the virtual clock offset as a single signed integer.
// ReadOffset returns ErrNotFound when nothing was saved yet.
type OffsetStore interface {
	ReadOffset(ctx context.Context) (int64, error)
	WriteOffset(ctx context.Context, seconds int64) error
}

// SessionRecorder keeps the history of synchronization sessions.
type SessionRecorder interface {
	RecordSession(ctx context.Context, rec SessionRecord) error
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)
}

// SessionRecord is one finished synchronization session.
type SessionRecord struct {
	ID         string
	Server     string
	Outcome    string
	Error      string
	Stage      int
	Attempts   int
	Simulated  bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the session ran.
func (r SessionRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
