package timeservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Result is what a time-service command reports back: its exit code and
// the combined stdout and stderr text.
type Result struct {
	ExitCode int
	Output   string
}

// OK reports a zero exit code.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Runner executes one command. A non-zero exit is reported through
// Result.ExitCode with a nil error; the error is reserved for commands that
// could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

var _ Runner = (*ExecRunner)(nil)

// ExecRunner runs commands as host processes.
type ExecRunner struct {
	// Timeout bounds each command; zero leaves it to the host.
	Timeout time.Duration
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return Result{Output: out.String()}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return Result{ExitCode: exitErr.ExitCode(), Output: out.String()}, nil
	}
	return Result{ExitCode: -1, Output: out.String()}, fmt.Errorf("run %s: %w", name, err)
}
