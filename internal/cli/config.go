// config.go implements the "vllm-avx-provision config"
// command, which prints the settings a run would use.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/vllm-avx-provision/internal/config"
	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
)

// NewConfigCommand creates the "config" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved settings",
		Long: `Resolve settings from flags, environment variables, the profile file and
defaults, validate them, and print the result.

Examples:
  vllm-avx-provision config
  INSTALL_MODE=editable vllm-avx-provision config --json
  vllm-avx-provision config --profile avx.yaml`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			// Same resolution and validation as install, so a bad value
			// fails here with the same exit code.
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return writeJSON(cmd.OutOrStdout(), settings)
			}
			return FormatSettings(cmd.OutOrStdout(), settings)
		},
	}
}

// FormatSettings prints settings as an aligned ENV=value table, in the
// form a user could paste back into a shell.
func FormatSettings(w io.Writer, s *model.Settings) error {
	rows := []struct {
		key   string
		value string
	}{
		{config.KeyPython, s.Python},
		{config.KeyVenvDir, s.VenvDir},
		{config.KeySrcDir, s.SrcDir},
		{config.KeyRef, s.Ref},
		{config.KeyRepoURL, s.RepoURL},
		{config.KeyInstallMode, s.InstallMode.String()},
		{config.KeySystemDeps, string(s.SystemDeps)},
		{config.KeyExtraIndexURL, s.ExtraIndexURL},
	}

	// Fixed-width key column; the longest variable name is 19 characters.
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", config.EnvName(r.key), r.value); err != nil {
			return err
		}
	}
	return nil
}
