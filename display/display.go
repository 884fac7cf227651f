// Package display drives the periodic clock readout. The loop is the only
// owner of presentation state; sync workers reach it through a Trigger.
package display

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tnicklin/time_sync/syncer"
	"github.com/tnicklin/time_sync/timeutil"
)

// OffsetSource supplies the virtual clock. *clock.Virtual implements it.
type OffsetSource interface {
	Offset() int64
	Now(realNow time.Time) time.Time
}

// Snapshot is one reading of the three clocks.
type Snapshot struct {
	Local   time.Time
	UTC     time.Time
	Virtual time.Time
	Offset  int64
}

// NewSnapshot reads the clocks at realNow.
func NewSnapshot(realNow time.Time, v OffsetSource) Snapshot {
	return Snapshot{
		Local:   realNow.Local(),
		UTC:     realNow.UTC(),
		Virtual: v.Now(realNow).Local(),
		Offset:  v.Offset(),
	}
}

func (s Snapshot) LocalDate() string   { return s.Local.Format(timeutil.DateLayout) }
func (s Snapshot) LocalTime() string   { return s.Local.Format(timeutil.TimeLayout) }
func (s Snapshot) UTCDate() string     { return s.UTC.Format(timeutil.DateLayout) }
func (s Snapshot) UTCTime() string     { return s.UTC.Format(timeutil.TimeLayout) }
func (s Snapshot) VirtualDate() string { return s.Virtual.Format(timeutil.DateLayout) }
func (s Snapshot) VirtualTime() string { return s.Virtual.Format(timeutil.TimeLayout) }
func (s Snapshot) OffsetText() string  { return timeutil.FormatOffset(s.Offset) }

// State is the presentation state owned by the loop.
type State struct {
	// SyncEnabled reports whether a new synchronization may be triggered.
	SyncEnabled bool
	// Running is the id of the session that disabled the trigger.
	Running string
	// Last is the most recent session outcome, if any.
	Last *syncer.Outcome
}

// Trigger queues session start and finish events for a Loop. Events are
// applied in the order they were posted, so a finish never overtakes the
// start of the same session.
type Trigger struct {
	mu      sync.Mutex
	pending []triggerEvent
	notify  chan struct{}
}

type triggerEvent struct {
	started string
	outcome *syncer.Outcome
}

// NewTrigger creates an empty Trigger.
func NewTrigger() *Trigger {
	return &Trigger{notify: make(chan struct{}, 1)}
}

// Started disables the trigger for session id. Wire it to the controller's
// start hook, which runs before the session goroutine exists.
func (t *Trigger) Started(id string) {
	t.post(triggerEvent{started: id})
}

// Finished re-enables the trigger and records the outcome.
func (t *Trigger) Finished(o syncer.Outcome) {
	t.post(triggerEvent{outcome: &o})
}

func (t *Trigger) post(e triggerEvent) {
	t.mu.Lock()
	t.pending = append(t.pending, e)
	t.mu.Unlock()
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

func (t *Trigger) drain() []triggerEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.pending
	t.pending = nil
	return out
}

// RenderFunc draws a snapshot. It runs on the loop goroutine.
type RenderFunc func(Snapshot, State)

// Loop ticks once per interval and renders the clocks.
type Loop struct {
	clock    clockwork.Clock
	source   OffsetSource
	interval time.Duration
	render   RenderFunc
	trigger  *Trigger
	state    State
}

// Params holds configuration for creating a new Loop.
type Params struct {
	Config  Config
	Clock   clockwork.Clock
	Virtual OffsetSource
	Render  RenderFunc
	// Trigger delivers session events; nil creates a private one.
	Trigger *Trigger
}

// New creates a Loop.
func New(p Params) *Loop {
	p.Config.Defaults()
	clk := p.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	render := p.Render
	if render == nil {
		render = func(Snapshot, State) {}
	}
	trigger := p.Trigger
	if trigger == nil {
		trigger = NewTrigger()
	}
	return &Loop{
		clock:    clk,
		source:   p.Virtual,
		interval: p.Config.Interval,
		render:   render,
		trigger:  trigger,
		state:    State{SyncEnabled: true},
	}
}

// Trigger returns the queue feeding the loop.
func (l *Loop) Trigger() *Trigger { return l.trigger }

// Run renders immediately and then on every tick until ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	l.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			l.draw()
		case <-l.trigger.notify:
			for _, e := range l.trigger.drain() {
				l.apply(e)
			}
			l.draw()
		}
	}
}

func (l *Loop) apply(e triggerEvent) {
	if e.outcome == nil {
		l.state.SyncEnabled = false
		l.state.Running = e.started
		return
	}
	l.state.SyncEnabled = true
	l.state.Running = ""
	l.state.Last = e.outcome
}

func (l *Loop) draw() {
	l.render(NewSnapshot(l.clock.Now(), l.source), l.state)
}
