// Package provision runs the provisioning pipeline end to end.
//
// Orchestration steps:
//  1. Validate settings
//  2. Check OS, architecture and CPU flags
//  3. Install system packages (optional, best effort)
//  4. Prepare the virtual environment
//  5. Resolve the source tree
//  6. Install requirement manifests
//  7. Build and install with the AVX-only flags
//  8. Print the runtime tuning hint
//
// Each step either succeeds or ends the run with a *model.CLIError. Nothing
// is rolled back: a rerun reuses the venv and clone left by the failed one.
package provision

import (
	"context"
	"runtime"

	"github.com/shinji-kodama/vllm-avx-provision/internal/build"
	"github.com/shinji-kodama/vllm-avx-provision/internal/hint"
	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
	"github.com/shinji-kodama/vllm-avx-provision/internal/platform"
	"github.com/shinji-kodama/vllm-avx-provision/internal/pyenv"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
	"github.com/shinji-kodama/vllm-avx-provision/internal/source"
	"github.com/shinji-kodama/vllm-avx-provision/internal/sysdeps"
	"github.com/shinji-kodama/vllm-avx-provision/internal/ui"
)

// totalSteps is shown in step headers.
const totalSteps = 8

// Options are run-level switches that are not part of Settings.
type Options struct {
	// DryRun prints mutating commands instead of running them.
	DryRun bool

	// SkipBuild stops after the requirement manifests are installed.
	SkipBuild bool

	// LogicalCPUs sizes the thread binding hint. Zero means runtime.NumCPU().
	LogicalCPUs int
}

// Report summarizes a finished run.
type Report struct {
	Host       *platform.HostInfo `json:"host"`
	Warnings   []string           `json:"warnings,omitempty"`
	SystemDeps sysdeps.Outcome    `json:"systemDeps"`
	VenvDir    string             `json:"venvDir"`
	Checkout   *source.Checkout   `json:"checkout"`
	Artifact   *build.Artifact    `json:"artifact,omitempty"`
	Libraries  hint.Libraries     `json:"libraries"`
}

// Provisioner wires the pipeline steps together. Components are exported
// so that callers (and tests) can adjust them after New.
type Provisioner struct {
	Settings *model.Settings
	Options  Options
	Printer  *ui.Printer

	Detector *platform.Detector
	SysDeps  *sysdeps.Installer
	Python   *pyenv.Preparer
	Source   *source.Resolver
	Build    *build.Driver
	Hint     *hint.Finder
}

// New creates a Provisioner. In dry-run mode r is wrapped so that only
// query commands reach the system.
func New(settings *model.Settings, r runner.Runner, p *ui.Printer, opts Options) *Provisioner {
	if opts.DryRun {
		r = runner.NewDryRunner(r, p.Out)
	}
	if opts.LogicalCPUs == 0 {
		opts.LogicalCPUs = runtime.NumCPU()
	}
	python := pyenv.NewPreparer(r, p)
	python.DryRun = opts.DryRun
	src := source.NewResolver(r, p)
	src.DryRun = opts.DryRun

	return &Provisioner{
		Settings: settings,
		Options:  opts,
		Printer:  p,
		Detector: platform.NewDetector(r),
		SysDeps:  sysdeps.NewInstaller(r, p),
		Python:   python,
		Source:   src,
		Build:    build.NewDriver(r, p, opts.DryRun),
		Hint:     &hint.Finder{VenvDir: settings.VenvDir},
	}
}

func (p *Provisioner) step(n int, title string) {
	p.Printer.Step("[%d/%d] %s", n, totalSteps, title)
}

// Preflight runs steps 1 and 2: it validates the settings and checks the
// host. Warnings are printed as well as returned.
func (p *Provisioner) Preflight(ctx context.Context) (*platform.HostInfo, []string, error) {
	p.step(1, "Validating settings")
	if err := p.Settings.Validate(); err != nil {
		return nil, nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid configuration", err)
	}

	p.step(2, "Checking platform and CPU flags")
	host := p.Detector.Detect(ctx)
	p.Printer.Verbosef("Host: %s %s, flags from %s", host.OS, host.Arch, host.FlagSource)
	warnings, err := platform.Check(host)
	if err != nil {
		return host, nil, err
	}
	for _, w := range warnings {
		p.Printer.Warnf("%s", w)
	}
	p.Printer.Infof("CPU: %s [%s]", displayModel(host), platform.Summary(host))
	return host, warnings, nil
}

// Run executes the whole pipeline.
func (p *Provisioner) Run(ctx context.Context) (*Report, error) {
	host, warnings, err := p.Preflight(ctx)
	if err != nil {
		return nil, err
	}
	report := &Report{Host: host, Warnings: warnings, VenvDir: p.Settings.VenvDir}

	p.step(3, "Installing system packages")
	if report.SystemDeps, err = p.SysDeps.Install(ctx, p.Settings.SystemDeps); err != nil {
		return nil, err
	}

	p.step(4, "Preparing virtual environment")
	env, err := p.Python.Prepare(ctx, p.Settings.Python, p.Settings.VenvDir)
	if err != nil {
		return nil, err
	}

	p.step(5, "Resolving source")
	if report.Checkout, err = p.Source.Resolve(ctx, p.Settings.SrcDir, p.Settings.RepoURL, p.Settings.Ref); err != nil {
		return nil, err
	}
	p.Printer.Verbosef("Source %s (%s) at %s", report.Checkout.Dir, report.Checkout.Origin, report.Checkout.Commit)

	p.step(6, "Installing dependencies")
	if err := p.Build.InstallDependencies(ctx, env, report.Checkout.Dir, p.Settings.ExtraIndexURL); err != nil {
		return nil, err
	}

	if p.Options.SkipBuild {
		p.Printer.Skipf("build (--skip-build)")
	} else {
		p.step(7, "Building ("+p.Settings.InstallMode.String()+")")
		if report.Artifact, err = p.Build.Build(ctx, env, report.Checkout.Dir, p.Settings.InstallMode); err != nil {
			return nil, err
		}
	}

	p.step(8, "Runtime hint")
	report.Libraries = p.PrintHint()

	return report, nil
}

// PrintHint runs step 8 on its own.
func (p *Provisioner) PrintHint() hint.Libraries {
	libs := p.Hint.Find()
	hint.Render(p.Printer.Out, libs, p.Options.LogicalCPUs)
	return libs
}

func displayModel(h *platform.HostInfo) string {
	if h.Model == "" {
		return "unknown model"
	}
	return h.Model
}
