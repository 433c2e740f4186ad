// Package ui formats the messages the CLI shows while provisioning.
//
// Progress and results go to stdout. Warnings, skips and verbose trace go
// to stderr so that stdout stays clean when --json is used.
package ui

import (
	"fmt"
	"io"
)

// Printer writes step headers, warnings and verbose trace.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
}

// NewPrinter creates a Printer writing to out and errOut.
func NewPrinter(out, errOut io.Writer, verbose bool) *Printer {
	return &Printer{Out: out, Err: errOut, Verbose: verbose}
}

// Step announces the start of a pipeline step.
func (p *Printer) Step(format string, args ...interface{}) {
	fmt.Fprintf(p.Out, "==> "+format+"\n", args...)
}

// Infof prints a plain line to stdout.
func (p *Printer) Infof(format string, args ...interface{}) {
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Warnf prints a non-fatal warning to stderr.
func (p *Printer) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(p.Err, "Warning: "+format+"\n", args...)
}

// Skipf reports that an optional step did nothing.
func (p *Printer) Skipf(format string, args ...interface{}) {
	fmt.Fprintf(p.Err, "Skipping: "+format+"\n", args...)
}

// Verbosef prints to stderr only when verbose mode is enabled.
func (p *Printer) Verbosef(format string, args ...interface{}) {
	if p.Verbose {
		fmt.Fprintf(p.Err, "[verbose] "+format+"\n", args...)
	}
}

// Discard returns a Printer that drops everything. Handy in tests.
func Discard() *Printer {
	return &Printer{Out: io.Discard, Err: io.Discard}
}
