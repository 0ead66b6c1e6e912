package cmd

import (
	"github.com/huangsam/robustscore/core"
	"github.com/huangsam/robustscore/internal/contract"
	"github.com/spf13/cobra"
)

// formulasSetup loads the config without requiring an input file or metrics.
func formulasSetup(_ *cobra.Command, _ []string) error {
	if err := loadRawInput(nil); err != nil {
		return err
	}
	if err := contract.ProcessFormulasConfig(cfg, input); err != nil {
		return err
	}
	applyPresentation()
	return nil
}

// formulasCmd displays the score definitions.
var formulasCmd = &cobra.Command{
	Use:   "formulas",
	Short: "Display the Overall and Degradation formulas and severity weights",
	Long: `Show how both robustness scores are computed and the weight every
severity level receives under the configured decay rates.

No input is read - this is purely informational.

Examples:
  # Default decay rates
  robustscore formulas

  # Compare against a flatter weighting
  robustscore formulas --decay-overall 0.9 --decay-degradation 0.9`,
	PreRunE: formulasSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFormulas(cfg); err != nil {
			contract.LogFatal("Cannot display formulas", err)
		}
	},
}
