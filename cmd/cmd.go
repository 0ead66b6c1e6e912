// Package cmd defines the command-line interface for robustscore.
package cmd

import (
	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(formulasCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(analysisCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the analysis subcommands to the parent analysis command
	analysisCmd.AddCommand(analysisClearCmd)
	analysisCmd.AddCommand(analysisStatusCmd)
	analysisCmd.AddCommand(analysisExportCmd)
	analysisCmd.AddCommand(analysisMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	flags := rootCmd.PersistentFlags()
	flags.StringP("group", "g", "", "Comma-separated grouping columns (e.g. Model,Task)")
	flags.String("transform-col", schema.DefaultTransformCol, "Column naming the corruption transform")
	flags.String("severity-col", schema.DefaultSeverityCol, "Column holding the integer severity level")
	flags.String("clean-label", schema.DefaultCleanLabel, "Transform value that marks baseline rows")
	flags.Int("clean-severity", schema.DefaultCleanSeverity, "Severity carried by baseline rows")
	flags.StringP("metrics", "m", "", "Metrics to score as name:direction pairs (e.g. DSC:higher,HD95:lower)")
	flags.Float64("decay-overall", schema.DefaultDecayRate, "Decay rate for Overall weights, in (0, 1]")
	flags.Float64("decay-degradation", schema.DefaultDecayRate, "Decay rate for Degradation weights, in (0, 1]")
	flags.Bool("skip-invalid", false, "Skip groups with missing or duplicate baselines instead of failing")
	flags.String("delimiter", ",", "Input delimiter: comma or tab or semicolon or pipe")
	flags.IntP("limit", "l", contract.DefaultResultLimit, "Number of transform rows to display (0 = all)")
	flags.String("sort-by", "", "Rank transform rows by the Degradation mean of this metric")
	flags.String("level", string(schema.BothLevels), "Tables to print: transform or group or both")
	flags.String("output", string(schema.TextOut), "Output format: text or csv or json or yaml or parquet")
	flags.String("output-file", "", "Optional path to write output to")
	flags.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	flags.String("profile", "", "Enable profiling and write profiles to files with this prefix")
	flags.Int("workers", contract.DefaultWorkers, "Number of concurrent group workers")
	flags.Int("width", 0, "Terminal width override (0 = auto-detect)")
	flags.String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	flags.String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	flags.String("analysis-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	flags.String("analysis-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	flags.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("config", "", "Path to config file")
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of analysisMigrateCmd to Viper
	analysisMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(analysisMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analysis migrate flags", err)
	}
}
