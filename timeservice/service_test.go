package timeservice

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		output string
		want   Status
	}{
		{"SERVICE_NAME: w32time\n        STATE              : 4  RUNNING", StatusRunning},
		{"        STATE              : 1  STOPPED", StatusStopped},
		{"START_TYPE : 4 DISABLED", StatusDisabled},
		{"[SC] EnumQueryServicesStatus:OpenService FAILED 1060", StatusUnknown},
		{"", StatusUnknown},
		{"running", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.output); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.output, got, tt.want)
		}
	}
}

func TestStatusString(t *testing.T) {
	want := map[Status]string{
		StatusRunning:  "running",
		StatusStopped:  "stopped",
		StatusDisabled: "disabled",
		StatusUnknown:  "unknown",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), w)
		}
	}
}

func TestHasMarker(t *testing.T) {
	markers := WindowsCommands().SuccessMarkers
	tests := []struct {
		output string
		want   bool
	}{
		{"Sending resync command to local computer\nThe command completed successfully.", true},
		{"SUCCESSFULLY SYNCHRONIZED", true},
		{"The computer did not resync because no time data was available.", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasMarker(tt.output, markers); got != tt.want {
			t.Errorf("HasMarker(%q) = %v, want %v", tt.output, got, tt.want)
		}
	}
	if HasMarker("anything", []string{""}) {
		t.Error("empty marker must not match")
	}
}

func TestFilterLines(t *testing.T) {
	output := "[Configuration]\n\nType: NTP (Local)\n  NtpServer: pool.ntp.org,0x8 (Local)\nPollInterval: 10\n[TimeProviders]\n"
	got := FilterLines(output, WindowsCommands().ImportantKeys)
	want := []string{"Type: NTP (Local)", "NtpServer: pool.ntp.org,0x8 (Local)", "[TimeProviders]"}
	if len(got) != len(want) {
		t.Fatalf("FilterLines() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestServiceCommands(t *testing.T) {
	r := newScriptedRunner().
		on("sc query w32time", Result{Output: "STATE : 4 RUNNING"}).
		on("net stop w32time", Result{ExitCode: 2, Output: "The Windows Time service is not started."})
	svc := New(Params{Runner: r})
	ctx := context.Background()

	st, _, err := svc.Status(ctx)
	if err != nil || st != StatusRunning {
		t.Fatalf("Status() = %v, %v", st, err)
	}

	res, err := svc.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if res.OK() || !svc.StoppedAlready(res) {
		t.Errorf("Stop() = %+v, want failed with not-running marker", res)
	}

	if _, err := svc.Configure(ctx, "tempus1.gum.gov.pl"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	_, _ = svc.Enable(ctx)
	_, _ = svc.Start(ctx)
	_, _ = svc.StartFallback(ctx)
	_, _ = svc.Resync(ctx)

	want := []string{
		"sc query w32time",
		"net stop w32time",
		"w32tm /config /manualpeerlist:tempus1.gum.gov.pl /syncfromflags:manual /reliable:yes /update",
		"sc config w32time start= auto",
		"net start w32time",
		"sc start w32time",
		"w32tm /resync /force",
	}
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %q", r.calls)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, r.calls[i], want[i])
		}
	}
}

func TestServiceCustomCommands(t *testing.T) {
	r := newScriptedRunner()
	svc := New(Params{Runner: r, Commands: Commands{
		Configure: []string{"chronyc", "add", "server", ServerPlaceholder, "iburst"},
	}})

	_, _ = svc.Configure(context.Background(), "pool.ntp.org")
	_, _ = svc.Start(context.Background())

	if r.calls[0] != "chronyc add server pool.ntp.org iburst" {
		t.Errorf("configure call = %q", r.calls[0])
	}
	if r.calls[1] != "net start w32time" {
		t.Errorf("unset commands should keep defaults, got %q", r.calls[1])
	}
}

func TestServiceReport(t *testing.T) {
	r := newScriptedRunner().
		on("sc query w32time", Result{Output: "STATE : 1 STOPPED"}).
		on("w32tm /query /source", Result{Output: "tempus1.gum.gov.pl\r\n"}).
		on("w32tm /query /configuration", Result{Output: "Type: NTP\nEventLogFlags: 2\nNtpServer: tempus1.gum.gov.pl\n"})

	rep, err := New(Params{Runner: r}).Report(context.Background())
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.Status != StatusStopped {
		t.Errorf("Status = %v, want stopped", rep.Status)
	}
	if rep.Source != "tempus1.gum.gov.pl" {
		t.Errorf("Source = %q", rep.Source)
	}
	if len(rep.Configuration) != 2 {
		t.Errorf("Configuration = %q, want 2 lines", rep.Configuration)
	}
}

func TestServiceReportSourceFailure(t *testing.T) {
	r := newScriptedRunner().
		on("w32tm /query /source", Result{ExitCode: 1, Output: "The following error occurred"})

	rep, err := New(Params{Runner: r}).Report(context.Background())
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.Source != "" {
		t.Errorf("Source = %q, want empty on failure", rep.Source)
	}
}

func TestServiceRunnerError(t *testing.T) {
	r := newScriptedRunner()
	boom := errors.New("exec: \"sc\": executable file not found")
	r.errs["sc query w32time"] = boom

	st, _, err := New(Params{Runner: r}).Status(context.Background())
	if !errors.Is(err, boom) || st != StatusUnknown {
		t.Fatalf("Status() = %v, %v; want unknown and runner error", st, err)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.Defaults()
	if cfg.CommandTimeout <= 0 {
		t.Error("CommandTimeout should default to a positive value")
	}
	if len(cfg.Commands.Resync) == 0 {
		t.Error("Commands should be filled")
	}
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r := &ExecRunner{}
	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Output != "out\nerr\n" {
		t.Errorf("Output = %q", res.Output)
	}

	if _, err := r.Run(context.Background(), "definitely-not-a-command-timesync"); err == nil {
		t.Error("Run() of a missing binary should fail")
	}
}
