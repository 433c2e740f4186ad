// Package sysdeps installs the system packages the build needs.
//
// The step is best effort: it runs only when INSTALL_SYSTEM_DEPS=1 and
// apt-get is present, and escalates with sudo when the process is not
// root. Every reason for not installing is logged as a skip rather than
// treated as a failure. Once apt-get actually runs, its failure is fatal.
package sysdeps

import (
	"context"
	"os"

	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
	"github.com/shinji-kodama/vllm-avx-provision/internal/ui"
)

// Packages is the fixed Debian/Ubuntu package set for a CPU build.
var Packages = []string{
	"build-essential",
	"ccache",
	"cmake",
	"git",
	"libnuma-dev",
	"libtcmalloc-minimal4",
	"ninja-build",
	"numactl",
	"python3-dev",
	"python3-venv",
}

// Outcome says what Install ended up doing.
type Outcome string

const (
	OutcomeDisabled         Outcome = "disabled"
	OutcomeNoPackageManager Outcome = "no-package-manager"
	OutcomeNoPrivilege      Outcome = "no-privilege"
	OutcomeInstalled        Outcome = "installed"
)

// Installer runs apt-get through a Runner.
type Installer struct {
	Runner  runner.Runner
	Printer *ui.Printer

	// Geteuid defaults to os.Geteuid.
	Geteuid func() int
}

// NewInstaller creates an Installer.
func NewInstaller(r runner.Runner, p *ui.Printer) *Installer {
	return &Installer{Runner: r, Printer: p, Geteuid: os.Geteuid}
}

// Install performs the system package step according to flag.
func (i *Installer) Install(ctx context.Context, flag model.SystemDepsFlag) (Outcome, error) {
	if !flag.Enabled() {
		i.Printer.Skipf("system packages (INSTALL_SYSTEM_DEPS=0)")
		return OutcomeDisabled, nil
	}

	aptGet, err := i.Runner.LookPath("apt-get")
	if err != nil {
		i.Printer.Skipf("system packages (apt-get not found; install %v manually)", Packages)
		return OutcomeNoPackageManager, nil
	}

	var prefix []string
	if i.euid() != 0 {
		sudo, err := i.Runner.LookPath("sudo")
		if err != nil {
			i.Printer.Skipf("system packages (not root and sudo not found)")
			return OutcomeNoPrivilege, nil
		}
		prefix = []string{sudo}
	}

	env := []string{"DEBIAN_FRONTEND=noninteractive"}

	update := command(prefix, aptGet, env, "update")
	if _, err := i.Runner.Run(ctx, update); err != nil {
		return "", model.WrapCLIError(model.ExitSystemDeps, "apt-get update failed", err)
	}

	args := append([]string{"install", "-y", "--no-install-recommends"}, Packages...)
	install := command(prefix, aptGet, env, args...)
	if _, err := i.Runner.Run(ctx, install); err != nil {
		return "", model.WrapCLIError(model.ExitSystemDeps, "apt-get install failed", err)
	}

	return OutcomeInstalled, nil
}

func (i *Installer) euid() int {
	if i.Geteuid == nil {
		return os.Geteuid()
	}
	return i.Geteuid()
}

// command builds an apt-get invocation, optionally behind sudo. sudo resets
// the environment, so DEBIAN_FRONTEND is passed as a sudo argument too.
func command(prefix []string, aptGet string, env []string, args ...string) runner.Cmd {
	if len(prefix) == 0 {
		return runner.Cmd{Name: aptGet, Args: args, Env: env}
	}
	full := append([]string{}, prefix[1:]...)
	full = append(full, env...)
	full = append(full, aptGet)
	full = append(full, args...)
	return runner.Cmd{Name: prefix[0], Args: full}
}
