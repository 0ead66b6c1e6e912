package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// ReportLevel selects which output table(s) are rendered.
	ReportLevel string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	YAMLOut    OutputMode = "yaml"
	ParquetOut OutputMode = "parquet"
)

// All report levels supported.
const (
	TransformLevel ReportLevel = "transform"
	GroupLevel     ReportLevel = "group"
	BothLevels     ReportLevel = "both" // default
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Defaults shared by the CLI, the MCP server and library callers.
const (
	DefaultCleanLabel     = "Clean"
	DefaultCleanSeverity  = 0
	DefaultTransformCol   = "Transform"
	DefaultSeverityCol    = "Severity"
	DefaultDecayRate      = 2.0 / 3.0
	DefaultPrecision      = 3
	DefaultMaxSeverity    = 5
	SectionOverall        = "Overall"
	SectionDegradation    = "Degradation"
	StatMean              = "mean"
	StatStd               = "std"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	YAMLOut:    {},
	ParquetOut: {},
}

// ValidReportLevels lists all valid report levels.
var ValidReportLevels = map[ReportLevel]struct{}{
	TransformLevel: {},
	GroupLevel:     {},
	BothLevels:     {},
}

// ValidCacheBackends lists all valid cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
