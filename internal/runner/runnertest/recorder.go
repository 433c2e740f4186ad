// Package runnertest provides a scripted runner.Runner for tests.
//
// The Recorder never executes anything. It records every command it is
// asked to run and answers from responses registered by command-line
// prefix, so tests can assert which external tools a step invoked and in
// what order.
package runnertest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
)

// Handler produces the response for a recorded command.
type Handler func(cmd runner.Cmd) (runner.Result, error)

type rule struct {
	prefix  string
	handler Handler
}

// Recorder is a runner.Runner that records invocations.
// The zero value answers every command with an empty successful Result and
// reports every executable as missing.
type Recorder struct {
	// Calls holds every command passed to Run, in order.
	Calls []runner.Cmd

	// Paths maps executable names to the path LookPath reports.
	// Names absent from the map are reported as not found.
	Paths map[string]string

	rules []rule
}

// New creates a Recorder where the given executables are "installed"
// under /usr/bin.
func New(executables ...string) *Recorder {
	r := &Recorder{Paths: make(map[string]string)}
	for _, name := range executables {
		r.Paths[name] = "/usr/bin/" + name
	}
	return r
}

// On answers commands whose String() starts with prefix with a fixed
// stdout and error. The longest matching prefix wins.
func (r *Recorder) On(prefix, stdout string, err error) {
	r.OnFunc(prefix, func(runner.Cmd) (runner.Result, error) {
		return runner.Result{Stdout: stdout}, err
	})
}

// OnFunc registers a handler for commands starting with prefix.
func (r *Recorder) OnFunc(prefix string, h Handler) {
	r.rules = append(r.rules, rule{prefix: prefix, handler: h})
}

// Run records cmd and answers from the matching rule.
func (r *Recorder) Run(_ context.Context, cmd runner.Cmd) (runner.Result, error) {
	r.Calls = append(r.Calls, cmd)

	line := cmd.String()
	var best *rule
	for i := range r.rules {
		if strings.HasPrefix(line, r.rules[i].prefix) {
			if best == nil || len(r.rules[i].prefix) > len(best.prefix) {
				best = &r.rules[i]
			}
		}
	}
	if best == nil {
		return runner.Result{}, nil
	}
	return best.handler(cmd)
}

// LookPath answers from Paths.
func (r *Recorder) LookPath(name string) (string, error) {
	if p, ok := r.Paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Commands returns the String() form of every recorded call.
func (r *Recorder) Commands() []string {
	out := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		out[i] = c.String()
	}
	return out
}

// Ran reports whether any recorded command starts with prefix.
func (r *Recorder) Ran(prefix string) bool {
	return r.Index(prefix) >= 0
}

// Index returns the position of the first recorded command starting with
// prefix, or -1.
func (r *Recorder) Index(prefix string) int {
	for i, c := range r.Calls {
		if strings.HasPrefix(c.String(), prefix) {
			return i
		}
	}
	return -1
}

// Fail builds a CommandError like the real runner would return.
func Fail(cmd runner.Cmd, exitCode int, stderr string) error {
	return &runner.CommandError{
		Cmd:      cmd,
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      fmt.Errorf("exit status %d", exitCode),
	}
}
