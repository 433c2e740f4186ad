// Package cli implements the cobra-based CLI commands for vllm-avx-provision.
//
// Each subcommand (install, check, hint, config) is defined in its own file
// within this package. This file defines the root command that serves as
// the parent for all subcommands and handles global flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/vllm-avx-provision/internal/config"
	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
	"github.com/shinji-kodama/vllm-avx-provision/internal/ui"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// Progress output moves to stderr so that stdout holds a single
	// JSON document.
	jsonOutput bool

	// verbose enables detailed logging output for debugging.
	verbose bool

	// profilePath is an optional YAML or JSONC settings file.
	profilePath string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vllm-avx-provision",
		Short: "Provision a CPU-only vLLM build for AVX (non-AVX-512) hosts",
		Long: `vllm-avx-provision checks that this machine can run an AVX-only CPU build,
prepares a Python virtual environment, fetches the source, installs the
requirements and builds the library with AVX-512, BF16 and VNNI paths
disabled.

Every setting can come from a flag, an environment variable or a profile
file, in that order of precedence.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	// Register global (persistent) flags.
	// Persistent flags are inherited by all subcommands.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Settings profile (.yaml, .yml, .json or .jsonc)")

	// One flag per setting (--mode, --ref, --venv-dir, ...). They live on
	// the root so that config and check resolve the same values install
	// would.
	config.RegisterFlags(rootCmd.PersistentFlags())

	// Register all subcommands.

	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewHintCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIError values carry their own exit codes; other errors default to
// exit code 1. An interrupt cancels the context, which kills the running
// child process.
func Execute(rootCmd *cobra.Command) {
	// Ctrl-C cancels the context; exec.CommandContext then kills the
	// child (pip, git, apt-get) instead of leaving it running.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		// Flag parsing errors and other plain errors from cobra end up
		// as ExitGeneralError inside reportError.
		os.Exit(int(reportError(os.Stderr, err)))
	}
}

// reportError prints err and returns the exit code to use.
func reportError(w io.Writer, err error) model.ExitCode {
	// errors.As also finds a CLIError wrapped with fmt.Errorf("...: %w").
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(w, cliErr.Message, cliErr.Err)
		return cliErr.Code
	}

	// Unknown error type: print as-is with the general exit code.
	printError(w, err.Error(), nil)
	return model.ExitGeneralError
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if IsJSONOutput() {
		// JSON error format: {"error": {"message": "...", "detail": "..."}}
		// "detail" is only present when there is an underlying cause.
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	// Text format: "Error: <message>: <cause>" on a single line.
	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// newPrinter creates the step printer for cmd. In JSON mode all
// human-readable output is moved to stderr.
func newPrinter(cmd *cobra.Command) *ui.Printer {
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		out = cmd.ErrOrStderr()
	}
	return ui.NewPrinter(out, cmd.ErrOrStderr(), verbose)
}

// loadSettings resolves settings from flags, environment and profile.
func loadSettings(cmd *cobra.Command) (*model.Settings, error) {
	// cmd.Flags() includes the persistent flags inherited from the root
	// once cobra has parsed the command line.
	return config.Load(config.Options{ProfilePath: profilePath, Flags: cmd.Flags()})
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode JSON output", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
// It is used for trace output that happens before a ui.Printer exists.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}
