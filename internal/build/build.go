// Package build installs the library's Python dependencies and builds it
// with the AVX-only feature flags.
//
// The C++ extension is compiled by the library's own setup.py/CMake; this
// package only selects the code path through environment variables and
// picks between a wheel build and an editable install.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
	"github.com/shinji-kodama/vllm-avx-provision/internal/pyenv"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
	"github.com/shinji-kodama/vllm-avx-provision/internal/ui"
)

// Manifests are installed in this order, relative to the source root.
var Manifests = []string{
	filepath.Join("requirements", "build.txt"),
	filepath.Join("requirements", "cpu.txt"),
}

// FeatureEnv selects the CPU target and disables every code path above
// the AVX baseline.
var FeatureEnv = []string{
	"VLLM_TARGET_DEVICE=cpu",
	"VLLM_CPU_DISABLE_AVX512=true",
	"VLLM_CPU_AVX512BF16=0",
	"VLLM_CPU_AVX512VNNI=0",
	"VLLM_CPU_AMXBF16=0",
}

// DistDir is where wheel mode writes its wheel, relative to the source root.
const DistDir = "dist"

// wheelGlob matches the library's wheels inside DistDir.
const wheelGlob = "vllm-*.whl"

// Artifact describes what Build installed.
type Artifact struct {
	Mode model.InstallMode `json:"mode"`

	// Wheel is the installed wheel path. Empty in editable mode.
	Wheel string `json:"wheel,omitempty"`
}

// Driver runs pip inside a prepared venv.
type Driver struct {
	Runner  runner.Runner
	Printer *ui.Printer

	// DryRun tolerates files that would only exist after skipped commands,
	// such as manifests of a clone that never happened.
	DryRun bool
}

// NewDriver creates a Driver.
func NewDriver(r runner.Runner, p *ui.Printer, dryRun bool) *Driver {
	return &Driver{Runner: r, Printer: p, DryRun: dryRun}
}

// InstallDependencies installs every manifest in Manifests from srcDir.
func (d *Driver) InstallDependencies(ctx context.Context, env *pyenv.Env, srcDir, extraIndexURL string) error {
	for _, m := range Manifests {
		path := filepath.Join(srcDir, m)
		if _, err := os.Stat(path); err != nil {
			if !d.DryRun {
				return model.WrapCLIError(model.ExitDependencyInstall, "requirements manifest missing", err)
			}
			d.Printer.Verbosef("%s not present yet (dry run)", path)
		}

		args := []string{"-m", "pip", "install", "-r", m}
		if extraIndexURL != "" {
			args = append(args, "--extra-index-url", extraIndexURL)
		}
		cmd := runner.Cmd{Name: env.Python(), Args: args, Dir: srcDir, Env: env.Vars()}
		if _, err := d.Runner.Run(ctx, cmd); err != nil {
			return model.WrapCLIError(model.ExitDependencyInstall, "failed to install "+m, err)
		}
	}
	return nil
}

// Env returns the child environment for the build: the activated venv
// plus FeatureEnv.
func Env(env *pyenv.Env) []string {
	return append(env.Vars(), FeatureEnv...)
}

// Build compiles and installs the library in the requested mode.
func (d *Driver) Build(ctx context.Context, env *pyenv.Env, srcDir string, mode model.InstallMode) (*Artifact, error) {
	buildEnv := Env(env)

	switch mode {
	case model.ModeEditable:
		cmd := runner.Cmd{
			Name: env.Python(),
			Args: []string{"-m", "pip", "install", "--no-build-isolation", "-e", "."},
			Dir:  srcDir,
			Env:  buildEnv,
		}
		if _, err := d.Runner.Run(ctx, cmd); err != nil {
			return nil, model.WrapCLIError(model.ExitBuildFailed, "editable install failed", err)
		}
		return &Artifact{Mode: mode}, nil

	case model.ModeWheel:
		cmd := runner.Cmd{
			Name: env.Python(),
			Args: []string{"-m", "pip", "wheel", "--no-build-isolation", "--no-deps", "-w", DistDir, "."},
			Dir:  srcDir,
			Env:  buildEnv,
		}
		if _, err := d.Runner.Run(ctx, cmd); err != nil {
			return nil, model.WrapCLIError(model.ExitBuildFailed, "wheel build failed", err)
		}

		wheel, err := NewestWheel(filepath.Join(srcDir, DistDir))
		if err != nil {
			if !d.DryRun {
				return nil, model.WrapCLIError(model.ExitBuildFailed, "no wheel produced", err)
			}
			wheel = filepath.Join(srcDir, DistDir, wheelGlob)
		}
		d.Printer.Verbosef("Installing %s", wheel)

		args := []string{"-m", "pip", "install", "--force-reinstall", "--no-deps", wheel}
		install := runner.Cmd{Name: env.Python(), Args: args, Dir: srcDir, Env: buildEnv}
		if _, err := d.Runner.Run(ctx, install); err != nil {
			return nil, model.WrapCLIError(model.ExitBuildFailed, "wheel install failed", err)
		}
		return &Artifact{Mode: mode, Wheel: wheel}, nil

	default:
		return nil, model.NewCLIError(model.ExitInvalidConfig, fmt.Sprintf("invalid install mode %q", mode))
	}
}

// NewestWheel returns the most recently modified library wheel in dir.
// dist/ accumulates wheels from earlier runs, so the newest one is the one
// the build just wrote.
func NewestWheel(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, wheelGlob))
	if err != nil {
		return "", err
	}

	var newest string
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no %s in %s", wheelGlob, dir)
	}
	return newest, nil
}
