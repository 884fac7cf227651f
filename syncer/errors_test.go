package syncer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tnicklin/time_sync/timeservice"
)

func TestClassify(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Severity
	}{
		{name: "nil", err: nil, want: SeverityNone},
		{name: "privilege", err: ErrPrivilegeDenied, want: SeverityFatal},
		{name: "already running", err: ErrAlreadyRunning, want: SeverityFatal},
		{name: "enable", err: &StageError{Stage: 2, Op: "enable", Kind: ErrServiceEnableFailed}, want: SeverityFatal},
		{name: "query", err: &StageError{Stage: 1, Op: "query", Kind: ErrServiceQueryFailed, Err: cause}, want: SeverityWarning},
		{name: "stop", err: &StageError{Stage: 3, Op: "stop", Kind: ErrServiceStopWarning}, want: SeverityWarning},
		{name: "configure", err: &StageError{Stage: 4, Op: "configure", Kind: ErrServiceConfigureFailed}, want: SeverityWarning},
		{name: "start", err: &StageError{Stage: 5, Op: "start", Kind: ErrServiceStartFailed}, want: SeverityWarning},
		{name: "resync", err: &StageError{Stage: 5, Op: "resync", Kind: ErrResyncUncertain}, want: SeverityUncertain},
		{name: "unexpected", err: &UnexpectedError{Stage: 3, Err: cause}, want: SeverityUnexpected},
		{name: "wrapped", err: fmt.Errorf("sync: %w", ErrPrivilegeDenied), want: SeverityFatal},
		{name: "foreign", err: cause, want: SeverityUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeverityBlocking(t *testing.T) {
	for s, want := range map[Severity]bool{
		SeverityNone:       false,
		SeverityWarning:    false,
		SeverityUncertain:  false,
		SeverityFatal:      true,
		SeverityUnexpected: true,
	} {
		if got := s.Blocking(); got != want {
			t.Errorf("%v.Blocking() = %v, want %v", s, got, want)
		}
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("access denied")
	err := &StageError{
		Stage:  2,
		Op:     "enable",
		Kind:   ErrServiceEnableFailed,
		Result: timeservice.Result{ExitCode: 5},
		Err:    cause,
	}

	if !errors.Is(err, ErrServiceEnableFailed) {
		t.Error("errors.Is should match the kind")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match the cause")
	}
	want := "stage 2 (enable): time service could not be enabled: access denied (exit 5)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnexpectedError(t *testing.T) {
	cause := errors.New("exec: not found")
	err := fmt.Errorf("session: %w", &UnexpectedError{Stage: 4, Err: cause})

	if !errors.Is(err, ErrUnexpected) || !errors.Is(err, cause) {
		t.Errorf("errors.Is failed for %v", err)
	}
	var uerr *UnexpectedError
	if !errors.As(err, &uerr) || uerr.Stage != 4 {
		t.Errorf("errors.As = %+v", uerr)
	}
}

func TestOutcomeMessage(t *testing.T) {
	tests := []struct {
		name string
		out  Outcome
		want string
	}{
		{name: "success", out: Outcome{Kind: KindSuccess, Server: "pool.ntp.org", Attempts: 1}, want: "time synchronized with server pool.ntp.org"},
		{name: "retry", out: Outcome{Kind: KindSuccess, Server: "pool.ntp.org", Attempts: 2}, want: "time synchronized with server pool.ntp.org (second attempt)"},
		{name: "simulated", out: Outcome{Kind: KindSuccess, Server: "time.windows.com", Simulated: true}, want: "simulated synchronization with time.windows.com completed"},
		{name: "uncertain", out: Outcome{Kind: KindUncertain}, want: "synchronization may have failed; check the logs for details"},
		{name: "failed", out: Outcome{Kind: KindFailed, Err: ErrServiceEnableFailed}, want: "synchronization failed: time service could not be enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.out.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionStageMonotonic(t *testing.T) {
	s := newSession("id", "pool.ntp.org", false, time.Time{})
	s.advance(3)
	s.advance(2)
	if got := s.Stage(); got != 3 {
		t.Errorf("Stage() = %d, want 3", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{SimulatedDelays: nil}
	c.Defaults()
	if c.DefaultServer != "tempus1.gum.gov.pl" || len(c.Servers) != 3 {
		t.Errorf("unexpected server defaults %+v", c)
	}
	if c.SettleDelay.Seconds() != 2 || c.RetryDelay.Seconds() != 5 {
		t.Errorf("delays = %v, %v; want 2s, 5s", c.SettleDelay, c.RetryDelay)
	}
}
