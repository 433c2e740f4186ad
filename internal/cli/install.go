// install.go implements the "vllm-avx-provision install"
// command, which runs the whole provisioning pipeline.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/vllm-avx-provision/internal/provision"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
)

// installFlags holds the flag values for the install command.
type installFlags struct {
	dryRun    bool // --dry-run: print mutating commands instead of running them
	skipBuild bool // --skip-build: stop after installing requirements
}

// NewInstallCommand creates the "install" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInstallCommand() *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Check the host, then build and install the AVX-only CPU build",
		Long: `Run the full provisioning pipeline:

  1. Validate settings
  2. Check OS, architecture and CPU flags (avx required)
  3. Install system packages (only with INSTALL_SYSTEM_DEPS=1)
  4. Create or reuse the virtual environment
  5. Use the local checkout, or clone/update the source and check out the ref
  6. Install requirements/build.txt and requirements/cpu.txt
  7. Build as a wheel or install in editable mode
  8. Print a runtime tuning hint

Examples:
  vllm-avx-provision install
  INSTALL_MODE=editable vllm-avx-provision install
  vllm-avx-provision install --ref v0.6.3 --system-deps 1
  vllm-avx-provision install --dry-run`,

		// Everything is configured through flags, env vars or a profile.
		Args: cobra.NoArgs,

		// RunE is used instead of Run so we can return errors. Cobra will
		// pass them to the Execute error handler in root.go.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), cmd, flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print commands that change the system instead of running them")
	cmd.Flags().BoolVar(&flags.skipBuild, "skip-build", false, "Stop after installing the requirement manifests")

	return cmd
}

// runInstall is the main orchestration function for the install command.
// The pipeline itself lives in the provision package; this function only
// wires it to the terminal and renders the result.
func runInstall(ctx context.Context, cmd *cobra.Command, flags *installFlags) error {
	// Resolve settings. Invalid INSTALL_MODE or INSTALL_SYSTEM_DEPS values
	// stop here with ExitInvalidConfig, before anything touches the host.
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	VerboseLog("Settings: mode=%s ref=%s venv=%s src=%s", settings.InstallMode, settings.Ref, settings.VenvDir, settings.SrcDir)

	printer := newPrinter(cmd)

	// Child output follows human output: stdout normally, stderr with --json.
	var childOut io.Writer = cmd.OutOrStdout()
	if IsJSONOutput() {
		childOut = cmd.ErrOrStderr()
	}
	r := runner.NewExecRunner(childOut, cmd.ErrOrStderr())

	prov := provision.New(settings, r, printer, provision.Options{
		DryRun:    flags.dryRun,
		SkipBuild: flags.skipBuild,
	})

	// Run all eight steps. Errors are already CLIErrors with the exit code
	// of the step that failed.
	report, err := prov.Run(ctx)
	if err != nil {
		return err
	}

	// Output results.
	if IsJSONOutput() {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	printer.Infof("")
	if flags.dryRun {
		printer.Infof("Dry run complete; nothing was changed.")
		return nil
	}
	printer.Infof("Installed into %s", report.VenvDir)
	printer.Infof("Activate with: source %s/bin/activate", report.VenvDir)
	return nil
}
