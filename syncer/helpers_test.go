package syncer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tnicklin/time_sync/clock"
	"github.com/tnicklin/time_sync/privilege"
	"github.com/tnicklin/time_sync/status"
	"github.com/tnicklin/time_sync/store"
	"github.com/tnicklin/time_sync/timeservice"
)

// MockRunner stands in for the host command runner. Expectations are keyed
// by the joined command line.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(_ context.Context, name string, args ...string) (timeservice.Result, error) {
	a := m.Called(strings.Join(append([]string{name}, args...), " "))
	return a.Get(0).(timeservice.Result), a.Error(1)
}

func (m *MockRunner) answer(cmd string, exit int, output string) *mock.Call {
	return m.On("Run", cmd).Return(timeservice.Result{ExitCode: exit, Output: output}, nil)
}

const (
	cmdQuery     = "sc query w32time"
	cmdEnable    = "sc config w32time start= auto"
	cmdStop      = "net stop w32time"
	cmdStart     = "net start w32time"
	cmdStartAlt  = "sc start w32time"
	cmdResync    = "w32tm /resync /force"
	cmdSource    = "w32tm /query /source"
	cmdConfQuery = "w32tm /query /configuration"
)

func cmdConfigure(server string) string {
	return "w32tm /config /manualpeerlist:" + server + " /syncfromflags:manual /reliable:yes /update"
}

type memoryHistory struct {
	mu      sync.Mutex
	records []store.SessionRecord
}

func (h *memoryHistory) RecordSession(_ context.Context, rec store.SessionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *memoryHistory) ListSessions(_ context.Context, _ int) ([]store.SessionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]store.SessionRecord(nil), h.records...), nil
}

type fakeProbe struct{ offset time.Duration }

func (p fakeProbe) Measure(_ context.Context, server string) (clock.Drift, error) {
	return clock.Drift{Server: server, Offset: p.offset}, nil
}

type harness struct {
	ctrl    *Controller
	runner  *MockRunner
	clock   *clockwork.FakeClock
	journal *status.Journal
	history *memoryHistory

	mu       sync.Mutex
	events   []string
	finished []Outcome
}

func newHarness(t *testing.T, privileged bool) *harness {
	t.Helper()
	h := &harness{
		runner:  &MockRunner{},
		clock:   clockwork.NewFakeClock(),
		journal: status.NewJournal(status.Params{}),
		history: &memoryHistory{},
	}
	h.ctrl = New(Params{
		Service:    timeservice.New(timeservice.Params{Runner: h.runner}),
		Privileged: privilege.Fixed(privileged),
		Logger:     h.journal,
		Clock:      h.clock,
		History:    h.history,
		OnStart: func(s *Session) {
			h.mu.Lock()
			h.events = append(h.events, "start "+s.ID())
			h.mu.Unlock()
		},
		OnFinish: func(o Outcome) {
			h.mu.Lock()
			h.events = append(h.events, "finish "+o.SessionID)
			h.finished = append(h.finished, o)
			h.mu.Unlock()
		},
	})
	return h
}

// wait drives the fake clock until the session delivers its outcome.
func (h *harness) wait(t *testing.T, s *Session) Outcome {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case o := <-s.Done():
			return o
		case <-deadline:
			t.Fatalf("session %s did not finish; stage %d", s.ID(), s.Stage())
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		err := h.clock.BlockUntilContext(ctx, 1)
		cancel()
		if err == nil {
			h.clock.Advance(10 * time.Second)
		}
	}
}

// waitSleeping blocks until the session goroutine is parked on the clock.
func (h *harness) waitSleeping(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
}

func (h *harness) messages() []string {
	var out []string
	for _, e := range h.journal.Entries() {
		out = append(out, e.Message)
	}
	return out
}

func (h *harness) indexOf(prefix string) int {
	for i, m := range h.messages() {
		if strings.HasPrefix(m, prefix) {
			return i
		}
	}
	return -1
}

func result(exit int, output string) timeservice.Result {
	return timeservice.Result{ExitCode: exit, Output: output}
}
