package timeservice

import (
	"context"
	"strings"
	"sync"
)

// scriptedRunner answers commands by their joined argv.
type scriptedRunner struct {
	mu      sync.Mutex
	answers map[string]Result
	errs    map[string]error
	calls   []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{answers: map[string]Result{}, errs: map[string]error{}}
}

func (r *scriptedRunner) on(cmd string, res Result) *scriptedRunner {
	r.answers[cmd] = res
	return r
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (Result, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, key)
	if err, ok := r.errs[key]; ok {
		return Result{ExitCode: -1}, err
	}
	return r.answers[key], nil
}
