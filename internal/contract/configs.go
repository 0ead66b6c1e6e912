package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/huangsam/robustscore/core/algo"
	"github.com/huangsam/robustscore/schema"
)

// Default values for configuration.
const (
	DefaultPrecision   = schema.DefaultPrecision
	MaxPrecision       = 6
	DefaultResultLimit = 0 // no limit
	MaxResultLimit     = 10000
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a scoring run.
// This struct remains the "final, validated" config.
type Config struct {
	InputPath string
	Delimiter rune

	GroupColumns     []string
	TransformColumn  string
	SeverityColumn   string
	CleanLabel       string
	CleanSeverity    int
	Metrics          schema.MetricSpec
	DecayOverall     float64
	DecayDegradation float64
	SkipInvalid      bool

	Workers     int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Level       schema.ReportLevel
	SortBy      string // metric whose Degradation mean orders transform rows; empty keeps key order
	ResultLimit int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool
	Verbose     bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	AnalysisBackend   schema.DatabaseBackend
	AnalysisDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	InputPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Group             string             `mapstructure:"group"`
	TransformCol      string             `mapstructure:"transform-col"`
	SeverityCol       string             `mapstructure:"severity-col"`
	CleanLabel        string             `mapstructure:"clean-label"`
	CleanSeverity     int                `mapstructure:"clean-severity"`
	Metrics           string             `mapstructure:"metrics"`
	MetricDefs        []schema.MetricDef `mapstructure:"metric-defs"`
	DecayOverall      float64            `mapstructure:"decay-overall"`
	DecayDegradation  float64            `mapstructure:"decay-degradation"`
	SkipInvalid       bool               `mapstructure:"skip-invalid"`
	Delimiter         string             `mapstructure:"delimiter"`
	Workers           int                `mapstructure:"workers"`
	Precision         int                `mapstructure:"precision"`
	Output            string             `mapstructure:"output"`
	OutputFile        string             `mapstructure:"output-file"`
	Level             string             `mapstructure:"level"`
	SortBy            string             `mapstructure:"sort-by"`
	Limit             int                `mapstructure:"limit"`
	Width             int                `mapstructure:"width"`
	Color             string             `mapstructure:"color"`
	Verbose           bool               `mapstructure:"verbose"`
	CacheBackend      string             `mapstructure:"cache-backend"`
	CacheDBConnect    string             `mapstructure:"cache-db-connect"`
	AnalysisBackend   string             `mapstructure:"analysis-backend"`
	AnalysisDBConnect string             `mapstructure:"analysis-db-connect"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.GroupColumns = slices.Clone(c.GroupColumns)
	clone.Metrics = slices.Clone(c.Metrics)
	return &clone
}

// Options converts the validated config into calculation options.
func (c *Config) Options() schema.Options {
	return schema.Options{
		GroupColumns:     slices.Clone(c.GroupColumns),
		TransformColumn:  c.TransformColumn,
		SeverityColumn:   c.SeverityColumn,
		Metrics:          slices.Clone(c.Metrics),
		CleanLabel:       c.CleanLabel,
		CleanSeverity:    c.CleanSeverity,
		DecayOverall:     c.DecayOverall,
		DecayDegradation: c.DecayDegradation,
		Workers:          c.Workers,
		SkipInvalid:      c.SkipInvalid,
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processColumns(cfg, input); err != nil {
		return err
	}
	if err := processMetrics(cfg, input); err != nil {
		return err
	}
	if err := processDecayRates(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return resolveInputPath(cfg, input)
}

// ProcessFormulasConfig validates the subset of inputs the formulas sheet
// needs. Metrics are optional there.
func ProcessFormulasConfig(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if strings.TrimSpace(input.Metrics) != "" || len(input.MetricDefs) > 0 {
		if err := processMetrics(cfg, input); err != nil {
			return err
		}
	}
	return processDecayRates(cfg, input)
}

// ProcessServerConfig validates the defaults a long-running server hands to
// every request. Input path and metrics are supplied per request.
func ProcessServerConfig(cfg *Config, input *ConfigRawInput) error {
	if err := ProcessFormulasConfig(cfg, input); err != nil {
		return err
	}
	if err := processColumns(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and analysis backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Analysis Backend Validation ---
	cfg.AnalysisBackend = schema.DatabaseBackend(strings.ToLower(input.AnalysisBackend))
	if cfg.AnalysisBackend == "" {
		return nil
	}
	if _, ok := schema.ValidCacheBackends[cfg.AnalysisBackend]; !ok {
		return fmt.Errorf("invalid analysis backend '%s'. must be sqlite, mysql, postgresql, none", input.AnalysisBackend)
	}
	cfg.AnalysisDBConnect = input.AnalysisDBConnect
	if err := ValidateDatabaseConnectionString(cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return err
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.AnalysisBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetDBFilePath()
		}
		analysisDBPath := cfg.AnalysisDBConnect
		if analysisDBPath == "" {
			analysisDBPath = GetAnalysisDBFilePath()
		}
		if cacheDBPath == analysisDBPath {
			return fmt.Errorf("cache and analysis storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all presentation and runtime fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.SkipInvalid = input.SkipInvalid
	cfg.Verbose = input.Verbose
	cfg.SortBy = strings.TrimSpace(input.SortBy)

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit < 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be between 0 and %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, yaml, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	cfg.Level = schema.ReportLevel(strings.ToLower(input.Level))
	if _, ok := schema.ValidReportLevels[cfg.Level]; !ok {
		return fmt.Errorf("invalid level '%s'. must be transform, group, both", input.Level)
	}

	delim, err := ParseDelimiter(input.Delimiter)
	if err != nil {
		return err
	}
	cfg.Delimiter = delim
	return nil
}

// processColumns parses the grouping columns and validates the structural column names.
func processColumns(cfg *Config, input *ConfigRawInput) error {
	cfg.GroupColumns = nil
	for g := range strings.SplitSeq(input.Group, ",") {
		if g = strings.TrimSpace(g); g != "" {
			cfg.GroupColumns = append(cfg.GroupColumns, g)
		}
	}

	cfg.TransformColumn = strings.TrimSpace(input.TransformCol)
	cfg.SeverityColumn = strings.TrimSpace(input.SeverityCol)
	cfg.CleanLabel = input.CleanLabel
	cfg.CleanSeverity = input.CleanSeverity

	if cfg.TransformColumn == "" || cfg.SeverityColumn == "" {
		return fmt.Errorf("transform and severity columns must be set")
	}
	if cfg.TransformColumn == cfg.SeverityColumn {
		return fmt.Errorf("transform and severity columns must differ (both are %q)", cfg.TransformColumn)
	}
	if cfg.CleanLabel == "" {
		return fmt.Errorf("clean label must not be empty")
	}
	if cfg.CleanSeverity < 0 {
		return fmt.Errorf("clean severity must be non-negative (received %d)", cfg.CleanSeverity)
	}
	for _, g := range cfg.GroupColumns {
		if g == cfg.TransformColumn || g == cfg.SeverityColumn {
			return fmt.Errorf("group column %q overlaps the transform or severity column", g)
		}
	}
	return nil
}

// processMetrics resolves the metric spec. The --metrics string takes
// precedence over a metric-defs list from the config file.
func processMetrics(cfg *Config, input *ConfigRawInput) error {
	var spec schema.MetricSpec
	if strings.TrimSpace(input.Metrics) != "" {
		parsed, err := schema.ParseMetricSpec(input.Metrics)
		if err != nil {
			return fmt.Errorf("invalid --metrics value: %w", err)
		}
		spec = parsed
	} else {
		for _, def := range input.MetricDefs {
			def.Direction = schema.Direction(strings.ToLower(string(def.Direction)))
			spec = append(spec, def)
		}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("invalid metric definitions: %w", err)
		}
	}

	if cfg.SortBy != "" {
		if _, ok := spec.Lookup(cfg.SortBy); !ok {
			return fmt.Errorf("sort-by metric %q is not one of %v", cfg.SortBy, spec.Names())
		}
	}
	cfg.Metrics = spec
	return nil
}

// processDecayRates validates both decay rates up front.
func processDecayRates(cfg *Config, input *ConfigRawInput) error {
	if err := algo.ValidateDecayRate(input.DecayOverall); err != nil {
		return fmt.Errorf("invalid --decay-overall: %w", err)
	}
	if err := algo.ValidateDecayRate(input.DecayDegradation); err != nil {
		return fmt.Errorf("invalid --decay-degradation: %w", err)
	}
	cfg.DecayOverall = input.DecayOverall
	cfg.DecayDegradation = input.DecayDegradation
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// ParseDelimiter maps a delimiter name or single character to a rune.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", ",", "comma":
		return ',', nil
	case "\t", `\t`, "tab", "tsv":
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q (expected comma, tab, semicolon or pipe)", s)
}

// resolveInputPath makes the positional input path absolute and checks it is a readable file.
// An empty path is allowed for subcommands that do not read input.
func resolveInputPath(cfg *Config, input *ConfigRawInput) error {
	if input.InputPathStr == "" {
		cfg.InputPath = ""
		return nil
	}
	absPath, err := filepath.Abs(input.InputPathStr)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("cannot read input %q: %w", input.InputPathStr, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %q is a directory, expected a CSV file", input.InputPathStr)
	}
	cfg.InputPath = filepath.Clean(absPath)
	return nil
}
