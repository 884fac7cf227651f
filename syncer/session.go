package syncer

import (
	"time"

	"go.uber.org/atomic"
)

const stageCount = 5

// Request describes one synchronization attempt.
type Request struct {
	// Server is the target time server; empty uses the configured default.
	Server string
	// Simulate runs the stage narrative without touching the host.
	Simulate bool
}

// Session is one running synchronization. It exists from Start until its
// outcome is delivered.
type Session struct {
	id        string
	server    string
	simulated bool
	startedAt time.Time
	stage     atomic.Int32
	done      chan Outcome
}

func newSession(id, server string, simulated bool, startedAt time.Time) *Session {
	return &Session{
		id:        id,
		server:    server,
		simulated: simulated,
		startedAt: startedAt,
		done:      make(chan Outcome, 1),
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Server() string       { return s.server }
func (s *Session) Simulated() bool      { return s.simulated }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Stage returns the stage currently executing, 1 through 5, or 0 before
// the first stage begins.
func (s *Session) Stage() int { return int(s.stage.Load()) }

// Done delivers the outcome exactly once, then is closed.
func (s *Session) Done() <-chan Outcome { return s.done }

// advance moves to stage n; stages only move forward.
func (s *Session) advance(n int) {
	for {
		cur := s.stage.Load()
		if int32(n) <= cur || s.stage.CompareAndSwap(cur, int32(n)) {
			return
		}
	}
}
