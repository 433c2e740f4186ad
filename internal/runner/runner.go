package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Cmd describes a single external command invocation.
type Cmd struct {
	// Name is the executable, either a bare name resolved via PATH or a path.
	Name string

	// Args are the arguments after the executable name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the process environment.
	// Later entries win over earlier ones and over the inherited environment.
	Env []string

	// Query marks a read-only command whose stdout is captured.
	Query bool
}

// String renders the command the way a user would type it in a shell.
// Arguments containing whitespace or quotes are quoted.
func (c Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'") {
		return strconv.Quote(s)
	}
	return s
}

// Result holds the captured output of a command.
// Stdout is only populated for Query commands.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes commands and resolves executables.
type Runner interface {
	// Run executes cmd and blocks until it exits. A non-zero exit status
	// is reported as a *CommandError.
	Run(ctx context.Context, cmd Cmd) (Result, error)

	// LookPath resolves an executable name like exec.LookPath does.
	LookPath(name string) (string, error)
}

// CommandError is returned when a command cannot be started or exits
// with a non-zero status.
type CommandError struct {
	// Cmd is the failed invocation.
	Cmd Cmd

	// ExitCode is the child's exit status, or -1 if it never started.
	ExitCode int

	// Stderr is the trailing part of the child's stderr output.
	Stderr string

	// Err is the underlying error from os/exec.
	Err error
}

// Error includes the command line, the exit status and, when present,
// the tail of stderr so that failures are diagnosable from the message alone.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Cmd.String())
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s (exit status %d)", msg, e.ExitCode)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// Unwrap returns the os/exec error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// maxStderrTail bounds how much child stderr is kept for error messages.
const maxStderrTail = 2048

// ExecRunner runs commands on the host via os/exec.
type ExecRunner struct {
	// Stdout and Stderr receive the output of streaming commands.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates an ExecRunner that streams child output to the
// given writers.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	return &ExecRunner{Stdout: stdout, Stderr: stderr}
}

// Run executes c and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	// #nosec G204: commands are assembled by the pipeline, not read from input
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout strings.Builder
	stderr := &tailBuffer{limit: maxStderrTail}

	if c.Query {
		cmd.Stdout = &stdout
		cmd.Stderr = stderr
	} else {
		cmd.Stdout = r.Stdout
		cmd.Stderr = io.MultiWriter(r.Stderr, stderr)
	}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return Result{}, &CommandError{
			Cmd:      c,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// LookPath resolves name against PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
