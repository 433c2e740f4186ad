// check.go implements the "vllm-avx-provision check"
// command: settings validation and the platform check, without installing
// anything.
package cli

import (
	"context"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/vllm-avx-provision/internal/platform"
	"github.com/shinji-kodama/vllm-avx-provision/internal/provision"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
)

// checkResult is the JSON shape of the check command.
type checkResult struct {
	Supported bool               `json:"supported"`
	Host      *platform.HostInfo `json:"host"`
	ISA       map[string]bool    `json:"isa"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// NewCheckCommand creates the "check" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that this host can run the AVX-only build",
		Long: `Validate the settings and check that the host is Linux on x86_64 with the
avx CPU flag. Exits with code 3 if the host is unsupported.

Examples:
  vllm-avx-provision check
  vllm-avx-provision check --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd)
		},
	}
}

func runCheck(ctx context.Context, cmd *cobra.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// Only queries (uname) run during the check, so child output never
	// reaches stdout.
	r := runner.NewExecRunner(cmd.ErrOrStderr(), cmd.ErrOrStderr())
	prov := provision.New(settings, r, newPrinter(cmd), provision.Options{LogicalCPUs: runtime.NumCPU()})

	// Preflight returns ExitUnsupportedPlatform for a host that fails the
	// check; warnings (AVX-512 present, AVX state disabled) are not fatal.
	host, warnings, err := prov.Preflight(ctx)
	if err != nil {
		return err
	}

	// Output results. The text form was already printed by Preflight.

	if IsJSONOutput() {
		return writeJSON(cmd.OutOrStdout(), checkResult{
			Supported: true,
			Host:      host,
			ISA:       platform.ISA(host),
			Warnings:  warnings,
		})
	}
	prov.Printer.Infof("Host is supported (%s %s, flags from %s).", host.OS, host.Arch, host.FlagSource)
	return nil
}
