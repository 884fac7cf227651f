package status

import (
	"sync"
	"time"

	"github.com/tnicklin/time_sync/logger"
)

var _ logger.Logger = (*Journal)(nil)

const defaultCapacity = 1000

// Journal records status entries in order and forwards each one to the
// underlying logger. Subscribers receive entries over buffered channels; a
// subscriber that falls behind misses entries rather than blocking writers.
type Journal struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	seq      uint64
	subs     map[int]chan Entry
	nextSub  int
	sink     logger.Logger
	now      func() time.Time
}

// Params configures a Journal.
type Params struct {
	// Sink receives every entry; usually the zap-backed logger.
	Sink logger.Logger
	// Capacity bounds the retained history; the oldest entries are dropped.
	Capacity int
	// Now overrides the entry timestamp source.
	Now func() time.Time
}

// NewJournal creates an empty Journal.
func NewJournal(p Params) *Journal {
	capacity := p.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Journal{
		capacity: capacity,
		subs:     make(map[int]chan Entry),
		sink:     logger.OrNop(p.Sink),
		now:      now,
	}
}

// DebugW goes to the sink only; debug output is not part of the status channel.
func (j *Journal) DebugW(msg string, keysAndValues ...any) {
	j.sink.DebugW(msg, keysAndValues...)
}

func (j *Journal) InfoW(msg string, keysAndValues ...any) {
	j.append(LevelInfo, msg, keysAndValues)
	j.sink.InfoW(msg, keysAndValues...)
}

func (j *Journal) WarnW(msg string, keysAndValues ...any) {
	j.append(LevelWarn, msg, keysAndValues)
	j.sink.WarnW(msg, keysAndValues...)
}

func (j *Journal) ErrorW(msg string, keysAndValues ...any) {
	j.append(LevelError, msg, keysAndValues)
	j.sink.ErrorW(msg, keysAndValues...)
}

func (j *Journal) Sync() error {
	return j.sink.Sync()
}

// Entries returns a copy of the retained entries, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the number of retained entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Subscribe returns a channel receiving every entry appended from now on and
// a function that cancels the subscription and closes the channel.
func (j *Journal) Subscribe(buffer int) (<-chan Entry, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Entry, buffer)

	j.mu.Lock()
	id := j.nextSub
	j.nextSub++
	j.subs[id] = ch
	j.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			j.mu.Lock()
			delete(j.subs, id)
			j.mu.Unlock()
			close(ch)
		})
	}
}

func (j *Journal) append(level Level, msg string, kv []any) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	fields := make([]any, len(kv))
	copy(fields, kv)
	e := Entry{
		Seq:     j.seq,
		Time:    j.now(),
		Level:   level,
		Message: msg,
		Fields:  fields,
	}

	if len(j.entries) == j.capacity {
		copy(j.entries, j.entries[1:])
		j.entries = j.entries[:len(j.entries)-1]
	}
	j.entries = append(j.entries, e)

	for _, ch := range j.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
