// hint.go implements the "vllm-avx-provision hint" command,
// which reprints the runtime tuning hint without reinstalling.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/vllm-avx-provision/internal/hint"
	"github.com/shinji-kodama/vllm-avx-provision/internal/provision"
	"github.com/shinji-kodama/vllm-avx-provision/internal/runner"
)

// hintResult is the JSON shape of the hint command.
type hintResult struct {
	Libraries   hint.Libraries `json:"libraries"`
	Missing     []string       `json:"missing,omitempty"`
	Preload     string         `json:"preload,omitempty"`
	ThreadsBind string         `json:"threadsBind,omitempty"`
}

// NewHintCommand creates the "hint" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewHintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hint",
		Short: "Print the LD_PRELOAD and thread binding suggestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			r := runner.NewExecRunner(cmd.ErrOrStderr(), cmd.ErrOrStderr())
			prov := provision.New(settings, r, newPrinter(cmd), provision.Options{})

			// Text mode prints the same block as the last install step.
			if !IsJSONOutput() {
				prov.PrintHint()
				return nil
			}

			// JSON mode reports the lines separately so scripts can
			// eval them without parsing the text block.
			libs := prov.Hint.Find()
			return writeJSON(cmd.OutOrStdout(), hintResult{
				Libraries:   libs,
				Missing:     libs.Missing(),
				Preload:     hint.PreloadLine(libs),
				ThreadsBind: hint.ThreadsBindLine(prov.Options.LogicalCPUs),
			})
		},
	}
}
