package runner

import (
	"context"
	"fmt"
	"io"
)

// DryRunner prints mutating commands instead of executing them.
// Query commands are forwarded to the wrapped Runner so that checks such
// as the interpreter version still see the real system.
type DryRunner struct {
	next Runner
	out  io.Writer
}

// NewDryRunner wraps next. Skipped commands are written to out.
func NewDryRunner(next Runner, out io.Writer) *DryRunner {
	return &DryRunner{next: next, out: out}
}

// Run prints c unless it is a query.
func (d *DryRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if c.Query {
		return d.next.Run(ctx, c)
	}
	if c.Dir != "" {
		fmt.Fprintf(d.out, "[dry-run] (cd %s && %s)\n", c.Dir, c.String())
	} else {
		fmt.Fprintf(d.out, "[dry-run] %s\n", c.String())
	}
	return Result{}, nil
}

// LookPath delegates to the wrapped Runner.
func (d *DryRunner) LookPath(name string) (string, error) {
	return d.next.LookPath(name)
}
