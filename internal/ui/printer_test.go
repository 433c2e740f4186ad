package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPrinter verifies which stream each kind of message lands on.
func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, false)

	p.Step("Checking CPU %s", "flags")
	p.Infof("ok")
	p.Warnf("avx512f present")
	p.Skipf("apt-get not found")
	p.Verbosef("hidden")

	assert.Equal(t, "==> Checking CPU flags\nok\n", out.String())
	assert.Equal(t, "Warning: avx512f present\nSkipping: apt-get not found\n", errOut.String())

	errOut.Reset()
	p.Verbose = true
	p.Verbosef("shown %d", 1)
	assert.Equal(t, "[verbose] shown 1\n", errOut.String())
}
