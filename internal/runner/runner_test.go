package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireShell skips tests that need /bin/sh, which every supported
// platform (Linux x86_64) has.
func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// TestCmd_String verifies shell-style rendering, quoting only when needed.
func TestCmd_String(t *testing.T) {
	c := Cmd{Name: "pip", Args: []string{"install", "-r", "requirements/cpu.txt"}}
	assert.Equal(t, "pip install -r requirements/cpu.txt", c.String())

	c = Cmd{Name: "python", Args: []string{"-c", "print(1 + 1)", ""}}
	assert.Equal(t, `python -c "print(1 + 1)" ""`, c.String())
}

// TestExecRunner_QueryCapturesStdout verifies that query commands return
// their stdout rather than streaming it.
func TestExecRunner_QueryCapturesStdout(t *testing.T) {
	requireShell(t)

	var streamed bytes.Buffer
	r := NewExecRunner(&streamed, &streamed)

	res, err := r.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo hello"}, Query: true})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, streamed.String(), "query output must not be streamed")
}

// TestExecRunner_StreamsOutput verifies that non-query commands write to
// the configured writers.
func TestExecRunner_StreamsOutput(t *testing.T) {
	requireShell(t)

	var stdout, stderr bytes.Buffer
	r := NewExecRunner(&stdout, &stderr)

	_, err := r.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
	require.NoError(t, err)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

// TestExecRunner_EnvAndDir verifies that extra env entries and the working
// directory reach the child.
func TestExecRunner_EnvAndDir(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	r := NewExecRunner(&bytes.Buffer{}, &bytes.Buffer{})

	res, err := r.Run(context.Background(), Cmd{
		Name:  "sh",
		Args:  []string{"-c", `echo "$PROVISION_TEST_VAR"; pwd`},
		Dir:   dir,
		Env:   []string{"PROVISION_TEST_VAR=avx"},
		Query: true,
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "avx", lines[0])
	assert.Contains(t, lines[1], strings.TrimPrefix(dir, "/private"))
}

// TestExecRunner_FailureCarriesExitCodeAndStderr verifies the CommandError
// contents for a non-zero exit.
func TestExecRunner_FailureCarriesExitCodeAndStderr(t *testing.T) {
	requireShell(t)

	r := NewExecRunner(&bytes.Buffer{}, &bytes.Buffer{})
	_, err := r.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo broken >&2; exit 3"}, Query: true})
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "broken", cmdErr.Stderr)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "broken")
}

// TestExecRunner_MissingExecutable verifies that a command that cannot be
// started reports ExitCode -1.
func TestExecRunner_MissingExecutable(t *testing.T) {
	r := NewExecRunner(&bytes.Buffer{}, &bytes.Buffer{})
	_, err := r.Run(context.Background(), Cmd{Name: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, -1, cmdErr.ExitCode)
}

// TestTailBuffer verifies that only the last bytes are kept.
func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	assert.Equal(t, "defg", b.String())
}

// TestDryRunner verifies that mutating commands are printed and queries
// are forwarded.
func TestDryRunner(t *testing.T) {
	requireShell(t)

	var out bytes.Buffer
	d := NewDryRunner(NewExecRunner(&bytes.Buffer{}, &bytes.Buffer{}), &out)

	_, err := d.Run(context.Background(), Cmd{Name: "git", Args: []string{"clone", "x", "y"}, Dir: "/src"})
	require.NoError(t, err)
	assert.Equal(t, "[dry-run] (cd /src && git clone x y)\n", out.String())

	res, err := d.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo q"}, Query: true})
	require.NoError(t, err)
	assert.Equal(t, "q\n", res.Stdout)
}
