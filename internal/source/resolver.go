package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
	"github.com/shinji-kodama/vllm-avx-provision/internal/ui"
)

// Origin records how the source tree was obtained.
type Origin string

const (
	// OriginLocal means the current working tree was reused in place.
	OriginLocal Origin = "local"

	// OriginExisting means an earlier clone in the source directory was
	// fetched and checked out.
	OriginExisting Origin = "existing"

	// OriginCloned means the repository was freshly cloned.
	OriginCloned Origin = "cloned"
)

// String returns the string representation of Origin.
func (o Origin) String() string {
	return string(o)
}

// Markers are the paths, relative to the repository root, that identify a
// checkout of the library rather than some unrelated Git repository.
var Markers = []string{
	"setup.py",
	filepath.Join("requirements", "cpu.txt"),
	"vllm",
}

// Checkout describes the resolved source tree.
type Checkout struct {
	// Dir is the absolute repository root.
	Dir string `json:"dir"`

	// Origin tells which of the three strategies was used.
	Origin Origin `json:"origin"`

	// Ref is the requested ref, or the current branch for local checkouts.
	Ref string `json:"ref"`

	// Commit is the resolved HEAD commit. Empty in dry-run mode when the
	// clone did not actually happen.
	Commit string `json:"commit,omitempty"`
}

// Resolver obtains the source tree through the git CLI.
type Resolver struct {
	Runner  runner.Runner
	Printer *ui.Printer

	// Getwd defaults to os.Getwd.
	Getwd func() (string, error)

	// DryRun leaves the filesystem alone; the clone itself is skipped by
	// the runner.
	DryRun bool
}

// NewResolver creates a Resolver.
func NewResolver(r runner.Runner, p *ui.Printer) *Resolver {
	return &Resolver{Runner: r, Printer: p, Getwd: os.Getwd}
}

// Resolve returns the source tree to build, cloning or updating srcDir
// when the current directory is not a checkout.
func (r *Resolver) Resolve(ctx context.Context, srcDir, repoURL, ref string) (*Checkout, error) {
	git, err := r.Runner.LookPath("git")
	if err != nil {
		return nil, model.WrapCLIError(model.ExitMissingCommand, "git not found", err)
	}

	if root, ok := r.localCheckout(ctx, git); ok {
		r.Printer.Infof("Using local checkout %s (ref left unchanged)", root)
		branch, _ := r.query(ctx, git, root, "rev-parse", "--abbrev-ref", "HEAD")
		commit, _ := r.query(ctx, git, root, "rev-parse", "HEAD")
		return &Checkout{Dir: root, Origin: OriginLocal, Ref: branch, Commit: commit}, nil
	}

	co := &Checkout{Dir: srcDir, Ref: ref}
	if IsGitRepo(srcDir) {
		co.Origin = OriginExisting
		r.Printer.Infof("Updating existing clone %s", srcDir)
		if err := r.run(ctx, git, srcDir, "fetch", "--tags", "--force", "origin"); err != nil {
			return nil, model.WrapCLIError(model.ExitGitError, "failed to fetch "+srcDir, err)
		}
	} else {
		co.Origin = OriginCloned
		r.Printer.Infof("Cloning %s into %s", repoURL, srcDir)
		if !r.DryRun {
			if err := os.MkdirAll(filepath.Dir(srcDir), 0o755); err != nil {
				return nil, model.WrapCLIError(model.ExitGitError, "failed to create source parent directory", err)
			}
		}
		clone := runner.Cmd{Name: git, Args: []string{"clone", repoURL, srcDir}}
		if _, err := r.Runner.Run(ctx, clone); err != nil {
			return nil, model.WrapCLIError(model.ExitGitError, "failed to clone "+repoURL, err)
		}
	}

	if err := r.run(ctx, git, srcDir, "checkout", ref); err != nil {
		return nil, model.WrapCLIError(model.ExitGitError, fmt.Sprintf("failed to check out %q", ref), err)
	}

	// A branch in an existing clone is behind its upstream after a fetch.
	if co.Origin == OriginExisting {
		if upstream, err := r.query(ctx, git, srcDir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}"); err == nil && upstream != "" {
			if err := r.run(ctx, git, srcDir, "merge", "--ff-only", upstream); err != nil {
				return nil, model.WrapCLIError(model.ExitGitError, "failed to fast-forward "+ref, err)
			}
		}
	}

	co.Commit, _ = r.query(ctx, git, srcDir, "rev-parse", "HEAD")
	return co, nil
}

// localCheckout reports whether the working directory sits inside a Git
// work tree of the library.
func (r *Resolver) localCheckout(ctx context.Context, git string) (string, bool) {
	getwd := r.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	cwd, err := getwd()
	if err != nil {
		return "", false
	}

	root, err := r.query(ctx, git, cwd, "rev-parse", "--show-toplevel")
	if err != nil || root == "" {
		return "", false
	}
	if !HasMarkers(root) {
		r.Printer.Verbosef("%s is a Git repository but not a library checkout", root)
		return "", false
	}
	return root, true
}

// run executes a mutating git command in dir.
func (r *Resolver) run(ctx context.Context, git, dir string, args ...string) error {
	fullArgs := append([]string{"-C", dir}, args...)
	_, err := r.Runner.Run(ctx, runner.Cmd{Name: git, Args: fullArgs})
	return err
}

// query executes a read-only git command in dir and returns trimmed stdout.
func (r *Resolver) query(ctx context.Context, git, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	res, err := r.Runner.Run(ctx, runner.Cmd{Name: git, Args: fullArgs, Query: true})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// HasMarkers reports whether every entry of Markers exists under root.
func HasMarkers(root string) bool {
	for _, m := range Markers {
		if _, err := os.Stat(filepath.Join(root, m)); err != nil {
			return false
		}
	}
	return true
}

// IsGitRepo reports whether dir contains a .git entry. Both a .git
// directory (regular clone) and a .git file (worktree or submodule) count.
func IsGitRepo(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil
}
