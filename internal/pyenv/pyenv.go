// Package pyenv prepares the isolated Python environment the build is
// installed into.
//
// The interpreter must be within the range the library supports. The venv
// is created once and reused on later runs; its packaging tools are
// upgraded every time because old pip versions cannot resolve the CPU
// torch index.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
	"github.com/shinji-kodama/vllm-avx-provision/internal/ui"
)

// Version is a Python version triple.
type Version struct {
	Major, Minor, Patch int
}

// Supported interpreter range: MinVersion <= v < MaxVersion.
var (
	MinVersion = Version{3, 9, 0}
	MaxVersion = Version{3, 13, 0}
)

// String formats the version as "3.11.4".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less compares versions component-wise.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

// Supported reports whether v is inside the supported range.
func (v Version) Supported() bool {
	return !v.Less(MinVersion) && v.Less(MaxVersion)
}

// ParseVersion parses "3.11" or "3.11.4". A trailing pre-release suffix
// on the patch component ("3.13.0rc1") is ignored.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("malformed python version %q", s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		if i == 2 {
			p = leadingDigits(p)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("malformed python version %q", s)
		}
		nums[i] = n
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}

func leadingDigits(s string) string {
	for i, c := range s {
		if c < '0' || c > '9' {
			return s[:i]
		}
	}
	return s
}

// versionScript prints the running interpreter's version triple.
const versionScript = "import sys; print('%d.%d.%d' % sys.version_info[:3])"

// Env is a prepared virtual environment.
type Env struct {
	// Dir is the venv root.
	Dir string
}

// Bin is the venv's executable directory.
func (e *Env) Bin() string {
	return filepath.Join(e.Dir, "bin")
}

// Python is the venv interpreter.
func (e *Env) Python() string {
	return filepath.Join(e.Bin(), "python")
}

// Vars returns the environment entries that activate the venv for a child
// process, the same way `source bin/activate` would.
func (e *Env) Vars() []string {
	path := e.Bin()
	if cur := os.Getenv("PATH"); cur != "" {
		path += string(os.PathListSeparator) + cur
	}
	return []string{"VIRTUAL_ENV=" + e.Dir, "PATH=" + path}
}

// Exists reports whether the venv interpreter is already there.
func (e *Env) Exists() bool {
	_, err := os.Stat(e.Python())
	return err == nil
}

// Preparer creates venvs.
type Preparer struct {
	Runner  runner.Runner
	Printer *ui.Printer

	// DryRun skips creating the venv parent directory.
	DryRun bool
}

// NewPreparer creates a Preparer.
func NewPreparer(r runner.Runner, p *ui.Printer) *Preparer {
	return &Preparer{Runner: r, Printer: p}
}

// Interpreter resolves python and checks its version.
func (p *Preparer) Interpreter(ctx context.Context, python string) (string, Version, error) {
	path, err := p.Runner.LookPath(python)
	if err != nil {
		return "", Version{}, model.WrapCLIError(model.ExitMissingCommand,
			fmt.Sprintf("python interpreter %q not found (set PYTHON_BIN)", python), err)
	}

	res, err := p.Runner.Run(ctx, runner.Cmd{Name: path, Args: []string{"-c", versionScript}, Query: true})
	if err != nil {
		return "", Version{}, model.WrapCLIError(model.ExitPythonVersion, "failed to query python version", err)
	}
	v, err := ParseVersion(res.Stdout)
	if err != nil {
		return "", Version{}, model.WrapCLIError(model.ExitPythonVersion, "failed to query python version", err)
	}
	if !v.Supported() {
		return "", Version{}, model.NewCLIError(model.ExitPythonVersion,
			fmt.Sprintf("python %s is not supported (need >= %d.%d and < %d.%d)",
				v, MinVersion.Major, MinVersion.Minor, MaxVersion.Major, MaxVersion.Minor))
	}
	return path, v, nil
}

// Prepare validates the interpreter, creates the venv at dir unless it
// already exists, and upgrades pip, setuptools and wheel inside it.
func (p *Preparer) Prepare(ctx context.Context, python, dir string) (*Env, error) {
	path, v, err := p.Interpreter(ctx, python)
	if err != nil {
		return nil, err
	}
	p.Printer.Verbosef("Using %s (python %s)", path, v)

	env := &Env{Dir: dir}
	if env.Exists() {
		p.Printer.Infof("Reusing virtual environment %s", dir)
	} else {
		if !p.DryRun {
			if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
				return nil, model.WrapCLIError(model.ExitDependencyInstall, "failed to create venv parent directory", err)
			}
		}
		create := runner.Cmd{Name: path, Args: []string{"-m", "venv", dir}}
		if _, err := p.Runner.Run(ctx, create); err != nil {
			return nil, model.WrapCLIError(model.ExitDependencyInstall, "failed to create virtual environment", err)
		}
	}

	upgrade := runner.Cmd{
		Name: env.Python(),
		Args: []string{"-m", "pip", "install", "--upgrade", "pip", "setuptools", "wheel"},
		Env:  env.Vars(),
	}
	if _, err := p.Runner.Run(ctx, upgrade); err != nil {
		return nil, model.WrapCLIError(model.ExitDependencyInstall, "failed to upgrade packaging tools", err)
	}

	return env, nil
}
