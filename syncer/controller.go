package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tnicklin/time_sync/clock"
	"github.com/tnicklin/time_sync/logger"
	"github.com/tnicklin/time_sync/store"
	"github.com/tnicklin/time_sync/timeservice"
	"github.com/tnicklin/time_sync/timeutil"
	"go.uber.org/atomic"
)

// Service is the time-service command surface the controller drives.
// *timeservice.Service implements it.
type Service interface {
	Status(ctx context.Context) (timeservice.Status, timeservice.Result, error)
	Enable(ctx context.Context) (timeservice.Result, error)
	Stop(ctx context.Context) (timeservice.Result, error)
	Configure(ctx context.Context, server string) (timeservice.Result, error)
	Start(ctx context.Context) (timeservice.Result, error)
	StartFallback(ctx context.Context) (timeservice.Result, error)
	Resync(ctx context.Context) (timeservice.Result, error)
	Report(ctx context.Context) (timeservice.Report, error)
	StoppedAlready(res timeservice.Result) bool
	Synchronized(res timeservice.Result) bool
}

var _ Service = (*timeservice.Service)(nil)

// DriftProber measures the host clock after a successful sync.
type DriftProber interface {
	Measure(ctx context.Context, server string) (clock.Drift, error)
}

// Controller runs synchronization sessions, at most one at a time.
type Controller struct {
	svc        Service
	privileged func() bool
	logger     logger.Logger
	clock      clockwork.Clock
	history    store.SessionRecorder
	probe      DriftProber
	onStart    func(*Session)
	onFinish   func(Outcome)
	cfg        Config
	newID      func() string

	inProgress atomic.Bool
	current    atomic.Pointer[Session]
}

// Params holds configuration for creating a new Controller.
type Params struct {
	Config  Config
	Service Service
	// Privileged is consulted before any session or service operation.
	Privileged func() bool
	Logger     logger.Logger
	Clock      clockwork.Clock
	// History, when set, receives a record of every finished session.
	History store.SessionRecorder
	// Probe, when set, measures drift after a successful real sync.
	Probe DriftProber
	// OnStart runs once the session is admitted, before its worker starts,
	// so it always precedes OnFinish for the same session.
	OnStart func(*Session)
	// OnFinish runs during session cleanup, after the in-progress flag
	// is cleared and before the outcome is delivered.
	OnFinish func(Outcome)
}

// New creates a Controller.
func New(p Params) *Controller {
	p.Config.Defaults()

	privileged := p.Privileged
	if privileged == nil {
		privileged = func() bool { return false }
	}
	clk := p.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	return &Controller{
		svc:        p.Service,
		privileged: privileged,
		logger:     logger.OrNop(p.Logger),
		clock:      clk,
		history:    p.History,
		probe:      p.Probe,
		onStart:    p.OnStart,
		onFinish:   p.OnFinish,
		cfg:        p.Config,
		newID:      uuid.NewString,
	}
}

// InProgress reports whether a session or a manual service operation is
// active.
func (c *Controller) InProgress() bool { return c.inProgress.Load() }

// Current returns the active session, or nil.
func (c *Controller) Current() *Session { return c.current.Load() }

// Servers returns the preset server list.
func (c *Controller) Servers() []string { return c.cfg.Servers }

// DefaultServer returns the server used when a request names none.
func (c *Controller) DefaultServer() string { return c.cfg.DefaultServer }

// Start begins a session in the background and returns it immediately. It
// fails with ErrPrivilegeDenied without running any command when the
// process is not elevated, and with ErrAlreadyRunning while another session
// is active.
//
// Once started a session cannot be cancelled: it runs detached from ctx's
// cancellation and always finishes with its cleanup.
func (c *Controller) Start(ctx context.Context, req Request) (*Session, error) {
	if !c.privileged() {
		c.logger.ErrorW("time synchronization requires administrator privileges")
		return nil, ErrPrivilegeDenied
	}
	if !c.inProgress.CompareAndSwap(false, true) {
		c.logger.WarnW("synchronization already in progress")
		return nil, ErrAlreadyRunning
	}

	server := strings.TrimSpace(req.Server)
	if server == "" {
		server = c.cfg.DefaultServer
	}

	s := newSession(c.newID(), server, req.Simulate || c.cfg.Simulate, c.clock.Now())
	c.current.Store(s)
	if c.onStart != nil {
		c.onStart(s)
	}

	go c.run(context.WithoutCancel(ctx), s)
	return s, nil
}

// Run starts a session and waits for its outcome or for ctx to end. The
// session keeps running if ctx ends first.
func (c *Controller) Run(ctx context.Context, req Request) (Outcome, error) {
	s, err := c.Start(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	select {
	case o := <-s.Done():
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (c *Controller) run(ctx context.Context, s *Session) {
	out := &Outcome{
		SessionID: s.id,
		Server:    s.server,
		Simulated: s.simulated,
		StartedAt: s.startedAt,
	}

	defer c.finish(ctx, s, out)
	defer func() {
		if r := recover(); r != nil {
			c.fail(out, &UnexpectedError{Stage: s.Stage(), Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	var err error
	if s.simulated {
		err = c.simulate(s, out)
	} else {
		err = c.synchronize(ctx, s, out)
	}
	if err != nil {
		c.fail(out, err)
	}
}

func (c *Controller) fail(out *Outcome, err error) {
	out.Kind = KindFailed
	out.Err = err
	c.logger.ErrorW("synchronization failed", "error", err,
		"system_time", c.clock.Now().Format(timeutil.DateTimeLayout))
}

// finish is the session's guaranteed cleanup.
func (c *Controller) finish(ctx context.Context, s *Session, out *Outcome) {
	out.Stage = s.Stage()
	out.FinishedAt = c.clock.Now()

	if c.history != nil {
		rec := store.SessionRecord{
			ID:         out.SessionID,
			Server:     out.Server,
			Outcome:    out.Kind.String(),
			Stage:      out.Stage,
			Attempts:   out.Attempts,
			Simulated:  out.Simulated,
			StartedAt:  out.StartedAt,
			FinishedAt: out.FinishedAt,
		}
		if out.Err != nil {
			rec.Error = out.Err.Error()
		}
		if err := c.history.RecordSession(ctx, rec); err != nil {
			c.logger.DebugW("failed to record sync session", "session", out.SessionID, "error", err)
		}
	}

	c.current.CompareAndSwap(s, nil)
	c.inProgress.Store(false)

	if c.onFinish != nil {
		c.onFinish(*out)
	}
	s.done <- *out
	close(s.done)
}

func (c *Controller) enter(s *Session, stage int, what string) {
	s.advance(stage)
	prefix := ""
	if s.simulated {
		prefix = "[simulation] "
	}
	c.logger.InfoW(fmt.Sprintf("%sstage %d/%d: %s", prefix, stage, stageCount, what),
		"stage", stage, "session", s.id)
}

func (c *Controller) simulate(s *Session, out *Outcome) error {
	c.logger.InfoW("[simulation] starting synchronization", "server", s.server, "session", s.id)

	steps := [stageCount]string{
		"checking time service status",
		"enabling time service",
		"configuring time server",
		"starting time service",
		"forcing resynchronization",
	}
	for i, what := range steps {
		c.enter(s, i+1, what)
		c.clock.Sleep(c.cfg.SimulatedDelays[i])
	}

	out.Kind = KindSuccess
	out.Attempts = 1
	c.logger.InfoW("[simulation] synchronization completed successfully",
		"server", s.server,
		"system_time", c.clock.Now().Format(timeutil.DateTimeLayout),
	)
	return nil
}

func (c *Controller) synchronize(ctx context.Context, s *Session, out *Outcome) error {
	c.logger.InfoW("starting synchronization", "server", s.server, "session", s.id)

	fatal, err := c.stages(ctx, s, out)
	if err != nil || fatal {
		return err
	}
	return c.resync(ctx, s, out)
}

// stages runs stages 1 through 5. fatal reports an abort already recorded
// in out; err is an unexpected failure.
func (c *Controller) stages(ctx context.Context, s *Session, out *Outcome) (bool, error) {
	warn := func(stage int, op string, kind error, res timeservice.Result, cause error, msg string) {
		serr := &StageError{Stage: stage, Op: op, Kind: kind, Result: res, Err: cause}
		out.Warnings = append(out.Warnings, serr)
		c.logger.WarnW(msg, "stage", stage, "output", strings.TrimSpace(res.Output), "error", serr)
	}

	c.enter(s, 1, "checking time service status")
	status, res, err := c.svc.Status(ctx)
	if err != nil {
		status = timeservice.StatusUnknown
		warn(1, "query", ErrServiceQueryFailed, res, err, "stage 1/5 finished: status query failed")
	} else {
		c.logger.InfoW("stage 1/5 finished: time service status", "stage", 1, "status", status.String())
	}

	c.enter(s, 2, "ensuring time service is enabled")
	if status == timeservice.StatusDisabled {
		res, err := c.svc.Enable(ctx)
		if err != nil || !res.OK() {
			serr := &StageError{Stage: 2, Op: "enable", Kind: ErrServiceEnableFailed, Result: res, Err: err}
			out.Kind = KindFailed
			out.Err = serr
			c.logger.ErrorW("stage 2/5 failed: cannot continue without enabling the time service",
				"stage", 2, "output", strings.TrimSpace(res.Output), "error", serr,
				"system_time", c.clock.Now().Format(timeutil.DateTimeLayout))
			return true, nil
		}
		c.logger.InfoW("stage 2/5 finished: time service enabled", "stage", 2)
	} else {
		c.logger.InfoW("stage 2/5 finished: time service already enabled", "stage", 2)
	}

	c.enter(s, 3, "stopping time service")
	if status == timeservice.StatusRunning {
		res, err := c.svc.Stop(ctx)
		switch {
		case err != nil:
			return false, &UnexpectedError{Stage: 3, Err: err}
		case res.OK():
			c.logger.InfoW("stage 3/5 finished: time service stopped", "stage", 3)
		case c.svc.StoppedAlready(res):
			c.logger.WarnW("stage 3/5 finished: time service was not running", "stage", 3,
				"output", strings.TrimSpace(res.Output))
		default:
			warn(3, "stop", ErrServiceStopWarning, res, nil, "stage 3/5 finished: stopping the time service reported a problem")
		}
	} else {
		c.logger.InfoW("stage 3/5 finished: time service was already stopped", "stage", 3, "status", status.String())
	}

	c.enter(s, 4, "configuring time server")
	res, err = c.svc.Configure(ctx, s.server)
	if err != nil {
		return false, &UnexpectedError{Stage: 4, Err: err}
	}
	if res.OK() {
		c.logger.InfoW("stage 4/5 finished: time server configured", "stage", 4, "server", s.server)
	} else {
		serr := &StageError{Stage: 4, Op: "configure", Kind: ErrServiceConfigureFailed, Result: res}
		out.Warnings = append(out.Warnings, serr)
		c.logger.ErrorW("stage 4/5 finished: time server configuration failed", "stage", 4,
			"server", s.server, "output", strings.TrimSpace(res.Output), "error", serr)
	}

	c.enter(s, 5, "starting time service")
	res, err = c.svc.Start(ctx)
	if err != nil {
		return false, &UnexpectedError{Stage: 5, Err: err}
	}
	if res.OK() {
		c.logger.InfoW("stage 5/5 finished: time service started", "stage", 5)
		return false, nil
	}

	c.logger.WarnW("primary start failed, trying the alternate start command", "stage", 5,
		"output", strings.TrimSpace(res.Output))
	res, err = c.svc.StartFallback(ctx)
	if err != nil {
		return false, &UnexpectedError{Stage: 5, Err: err}
	}
	if res.OK() {
		c.logger.InfoW("stage 5/5 finished: time service started with the alternate command", "stage", 5)
		return false, nil
	}
	serr := &StageError{Stage: 5, Op: "start", Kind: ErrServiceStartFailed, Result: res}
	out.Warnings = append(out.Warnings, serr)
	c.logger.ErrorW("stage 5/5 finished: time service could not be started", "stage", 5,
		"output", strings.TrimSpace(res.Output), "error", serr)
	return false, nil
}

// resync forces a resynchronization after the settle delay and retries it
// exactly once after the retry delay.
func (c *Controller) resync(ctx context.Context, s *Session, out *Outcome) error {
	c.clock.Sleep(c.cfg.SettleDelay)

	for attempt := 1; attempt <= 2; attempt++ {
		if attempt == 2 {
			c.logger.InfoW("retrying resynchronization", "attempt", attempt, "delay", c.cfg.RetryDelay)
			c.clock.Sleep(c.cfg.RetryDelay)
		} else {
			c.logger.InfoW("forcing resynchronization", "attempt", attempt)
		}

		res, err := c.svc.Resync(ctx)
		if err != nil {
			return &UnexpectedError{Stage: 5, Err: err}
		}
		out.Attempts = attempt
		out.Output = res.Output

		if c.svc.Synchronized(res) {
			out.Kind = KindSuccess
			c.succeed(ctx, s, attempt)
			return nil
		}
		if attempt == 1 {
			c.logger.WarnW("resynchronization may have failed", "attempt", attempt,
				"output", strings.TrimSpace(res.Output))
		}
	}

	out.Kind = KindUncertain
	out.Err = &StageError{Stage: 5, Op: "resync", Kind: ErrResyncUncertain, Result: timeservice.Result{Output: out.Output}}
	c.logger.WarnW("synchronization may have failed; check the logs for details",
		"server", s.server,
		"attempts", out.Attempts,
		"output", strings.TrimSpace(out.Output),
		"system_time", c.clock.Now().Format(timeutil.DateTimeLayout),
	)
	return nil
}

func (c *Controller) succeed(ctx context.Context, s *Session, attempt int) {
	kv := []any{
		"server", s.server,
		"attempt", attempt,
		"system_time", c.clock.Now().Format(timeutil.DateTimeLayout),
	}
	if c.probe != nil {
		if d, err := c.probe.Measure(ctx, s.server); err == nil {
			kv = append(kv, "drift", d.Offset.Round(time.Millisecond).String())
		}
	}
	c.logger.InfoW("synchronization completed successfully", kv...)
}
