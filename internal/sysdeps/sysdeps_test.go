package sysdeps

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner/runnertest"
	"github.com/shinji-kodama/vllm-avx-provision/internal/ui"
)

func newInstaller(rec *runnertest.Recorder, euid int) (*Installer, *bytes.Buffer) {
	var errOut bytes.Buffer
	p := ui.NewPrinter(&bytes.Buffer{}, &errOut, false)
	return &Installer{Runner: rec, Printer: p, Geteuid: func() int { return euid }}, &errOut
}

// TestInstall_Disabled verifies that nothing runs when the flag is 0.
func TestInstall_Disabled(t *testing.T) {
	rec := runnertest.New("apt-get", "sudo")
	inst, errOut := newInstaller(rec, 0)

	outcome, err := inst.Install(context.Background(), model.SystemDepsOff)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDisabled, outcome)
	assert.Empty(t, rec.Calls)
	assert.Contains(t, errOut.String(), "Skipping")
}

// TestInstall_NoAptGet verifies the skip when no package manager exists.
func TestInstall_NoAptGet(t *testing.T) {
	rec := runnertest.New("sudo")
	inst, errOut := newInstaller(rec, 0)

	outcome, err := inst.Install(context.Background(), model.SystemDepsOn)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoPackageManager, outcome)
	assert.Empty(t, rec.Calls)
	assert.Contains(t, errOut.String(), "apt-get not found")
}

// TestInstall_NotRootWithoutSudo verifies the skip when escalation is
// impossible.
func TestInstall_NotRootWithoutSudo(t *testing.T) {
	rec := runnertest.New("apt-get")
	inst, _ := newInstaller(rec, 1000)

	outcome, err := inst.Install(context.Background(), model.SystemDepsOn)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoPrivilege, outcome)
	assert.Empty(t, rec.Calls)
}

// TestInstall_AsRoot verifies the direct apt-get invocations.
func TestInstall_AsRoot(t *testing.T) {
	rec := runnertest.New("apt-get")
	inst, _ := newInstaller(rec, 0)

	outcome, err := inst.Install(context.Background(), model.SystemDepsOn)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInstalled, outcome)

	require.Len(t, rec.Calls, 2)
	assert.Equal(t, "/usr/bin/apt-get update", rec.Calls[0].String())
	assert.Contains(t, rec.Calls[1].String(), "/usr/bin/apt-get install -y --no-install-recommends build-essential")
	assert.Contains(t, rec.Calls[1].Env, "DEBIAN_FRONTEND=noninteractive")
}

// TestInstall_WithSudo verifies the escalated form.
func TestInstall_WithSudo(t *testing.T) {
	rec := runnertest.New("apt-get", "sudo")
	inst, _ := newInstaller(rec, 1000)

	_, err := inst.Install(context.Background(), model.SystemDepsOn)
	require.NoError(t, err)

	require.Len(t, rec.Calls, 2)
	assert.Equal(t, "/usr/bin/sudo DEBIAN_FRONTEND=noninteractive /usr/bin/apt-get update", rec.Calls[0].String())
}

// TestInstall_FailureIsFatal verifies that a failed apt-get aborts.
func TestInstall_FailureIsFatal(t *testing.T) {
	rec := runnertest.New("apt-get")
	rec.OnFunc("/usr/bin/apt-get install", func(c runner.Cmd) (runner.Result, error) {
		return runner.Result{}, runnertest.Fail(c, 100, "E: Unable to locate package")
	})
	inst, _ := newInstaller(rec, 0)

	_, err := inst.Install(context.Background(), model.SystemDepsOn)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitSystemDeps, cliErr.Code)
	assert.Contains(t, err.Error(), "Unable to locate package")
}
