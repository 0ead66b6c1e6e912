package cmd

import (
	"github.com/huangsam/robustscore/core"
	"github.com/huangsam/robustscore/internal/contract"
	"github.com/spf13/cobra"
)

// scoreCmd scores a metrics table.
var scoreCmd = &cobra.Command{
	Use:   "score <metrics.csv>",
	Short: "Compute Overall and Degradation scores for every transform and group.",
	Long: `Aggregate per-sample metrics into (group, transform, severity) buckets,
compare each transform against its clean baseline and print two tables:

- Transform level: one row per (group, transform)
- Group level: the unweighted mean of those rows per group

Severity s receives weight rate^s, so mild corruptions count the most.

Examples:
  # Score Dice and HD95 per model and task
  robustscore score results.csv -g Model,Task -m DSC:higher,HD95:lower

  # Show the five most damaging transforms by Dice
  robustscore score results.csv -m DSC:higher --sort-by DSC --limit 5

  # Equal weights for every severity
  robustscore score results.csv -m DSC --decay-overall 1 --decay-degradation 1

  # Export both tables as Parquet
  robustscore score results.csv -m DSC --output parquet --output-file scores.parquet`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteScore(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot score input", err)
		}
	},
}
