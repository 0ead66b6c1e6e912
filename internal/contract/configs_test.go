package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/robustscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes every validation step.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Group:            "Model,Task",
		TransformCol:     "Transform",
		SeverityCol:      "Severity",
		CleanLabel:       "Clean",
		Metrics:          "DSC:higher,HD95:lower",
		DecayOverall:     2.0 / 3.0,
		DecayDegradation: 2.0 / 3.0,
		Workers:          4,
		Precision:        3,
		Output:           "text",
		Level:            "both",
		Color:            "yes",
		CacheBackend:     "none",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "no grouping columns", mutate: func(in *ConfigRawInput) { in.Group = "" }},
		{
			name:        "invalid decay overall",
			mutate:      func(in *ConfigRawInput) { in.DecayOverall = 0 },
			expectError: "decay-overall",
		},
		{
			name:        "invalid decay degradation",
			mutate:      func(in *ConfigRawInput) { in.DecayDegradation = 1.5 },
			expectError: "decay-degradation",
		},
		{
			name:        "bad metrics",
			mutate:      func(in *ConfigRawInput) { in.Metrics = "DSC:sideways" },
			expectError: "--metrics",
		},
		{
			name:        "no metrics at all",
			mutate:      func(in *ConfigRawInput) { in.Metrics = "" },
			expectError: "metric definitions",
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: "invalid output format",
		},
		{
			name:        "parquet without file",
			mutate:      func(in *ConfigRawInput) { in.Output = "parquet" },
			expectError: "--output-file",
		},
		{
			name:        "invalid level",
			mutate:      func(in *ConfigRawInput) { in.Level = "subject" },
			expectError: "invalid level",
		},
		{
			name:        "zero workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: "workers",
		},
		{
			name:        "precision too high",
			mutate:      func(in *ConfigRawInput) { in.Precision = 9 },
			expectError: "precision",
		},
		{
			name:        "negative limit",
			mutate:      func(in *ConfigRawInput) { in.Limit = -1 },
			expectError: "limit",
		},
		{
			name:        "bad color",
			mutate:      func(in *ConfigRawInput) { in.Color = "maybe" },
			expectError: "--color",
		},
		{
			name:        "same transform and severity column",
			mutate:      func(in *ConfigRawInput) { in.SeverityCol = "Transform" },
			expectError: "must differ",
		},
		{
			name:        "group overlaps transform",
			mutate:      func(in *ConfigRawInput) { in.Group = "Model,Transform" },
			expectError: "overlaps",
		},
		{
			name:        "empty clean label",
			mutate:      func(in *ConfigRawInput) { in.CleanLabel = "" },
			expectError: "clean label",
		},
		{
			name:        "sort by unknown metric",
			mutate:      func(in *ConfigRawInput) { in.SortBy = "IoU" },
			expectError: "sort-by",
		},
		{
			name:        "bad delimiter",
			mutate:      func(in *ConfigRawInput) { in.Delimiter = "#" },
			expectError: "delimiter",
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: "cache backend",
		},
		{
			name:        "missing input file",
			mutate:      func(in *ConfigRawInput) { in.InputPathStr = "does-not-exist.csv" },
			expectError: "cannot read input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidatePopulatesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.tsv")
	require.NoError(t, os.WriteFile(path, []byte("Transform\tSeverity\tDSC\n"), 0o644))

	input := validInput()
	input.InputPathStr = path
	input.Group = " Model , Task ,"
	input.Delimiter = "tab"
	input.SortBy = "HD95"
	input.Limit = 5

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, path, cfg.InputPath)
	assert.Equal(t, '\t', cfg.Delimiter)
	assert.Equal(t, []string{"Model", "Task"}, cfg.GroupColumns)
	assert.Equal(t, schema.MetricSpec{
		{Name: "DSC", Direction: schema.HigherIsBetter},
		{Name: "HD95", Direction: schema.LowerIsBetter},
	}, cfg.Metrics)
	assert.Equal(t, schema.BothLevels, cfg.Level)
	assert.True(t, cfg.UseColors)
	assert.Equal(t, 5, cfg.ResultLimit)

	opts := cfg.Options()
	assert.Equal(t, "Clean", opts.CleanLabel)
	assert.InDelta(t, 2.0/3.0, opts.DecayOverall, 1e-12)
	assert.Equal(t, 4, opts.Workers)

	// Options must not alias the config slices.
	opts.GroupColumns[0] = "Changed"
	assert.Equal(t, "Model", cfg.GroupColumns[0])
}

func TestProcessMetricDefsFromConfigFile(t *testing.T) {
	input := validInput()
	input.Metrics = ""
	input.MetricDefs = []schema.MetricDef{
		{Name: "DSC", Direction: "Higher"},
		{Name: "HD95", Direction: "lower"},
	}

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, schema.LowerIsBetter, cfg.Metrics[1].Direction)
	assert.Equal(t, schema.HigherIsBetter, cfg.Metrics[0].Direction)

	// The flag wins over the file.
	input.Metrics = "IoU"
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, []string{"IoU"}, cfg.Metrics.Names())
}

func TestInputDirectoryRejected(t *testing.T) {
	input := validInput()
	input.InputPathStr = t.TempDir()
	err := ProcessAndValidate(&Config{}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{"sqlite ignores string", schema.SQLiteBackend, "", false},
		{"none ignores string", schema.NoneBackend, "whatever", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/robustscore", false},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/db", true},
		{"mysql missing db", schema.MySQLBackend, "user:pass@tcp(localhost:3306)", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost dbname=robustscore", false},
		{"postgres missing host", schema.PostgreSQLBackend, "dbname=robustscore", true},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBackendConfigsSameSQLiteFile(t *testing.T) {
	input := validInput()
	input.CacheBackend = "sqlite"
	input.CacheDBConnect = "/tmp/same.db"
	input.AnalysisBackend = "sqlite"
	input.AnalysisDBConnect = "/tmp/same.db"

	err := ProcessAndValidate(&Config{}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different SQLite database files")

	input.AnalysisDBConnect = "/tmp/other.db"
	assert.NoError(t, ProcessAndValidate(&Config{}, input))
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in       string
		expected rune
		wantErr  bool
	}{
		{"", ',', false},
		{"comma", ',', false},
		{"TAB", '\t', false},
		{`\t`, '\t', false},
		{";", ';', false},
		{"pipe", '|', false},
		{"#", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDelimiter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{
		GroupColumns: []string{"Model"},
		Metrics:      schema.MetricSpec{{Name: "DSC", Direction: schema.HigherIsBetter}},
	}
	clone := cfg.Clone()
	clone.GroupColumns[0] = "Task"
	clone.Metrics[0].Name = "IoU"
	assert.Equal(t, "Model", cfg.GroupColumns[0])
	assert.Equal(t, "DSC", cfg.Metrics[0].Name)
}

func TestProcessFormulasConfig(t *testing.T) {
	in := validInput()
	in.Metrics = ""
	cfg := &Config{}
	require.NoError(t, ProcessFormulasConfig(cfg, in))
	assert.Empty(t, cfg.Metrics)
	assert.InDelta(t, 2.0/3.0, cfg.DecayOverall, 1e-12)

	in.Metrics = "DSC"
	require.NoError(t, ProcessFormulasConfig(cfg, in))
	assert.Equal(t, []string{"DSC"}, cfg.Metrics.Names())

	in.DecayDegradation = 2
	assert.ErrorContains(t, ProcessFormulasConfig(cfg, in), "decay-degradation")
}

func TestProcessServerConfig(t *testing.T) {
	in := validInput()
	in.Metrics = ""
	cfg := &Config{}
	require.NoError(t, ProcessServerConfig(cfg, in))
	assert.Equal(t, []string{"Model", "Task"}, cfg.GroupColumns)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)

	in.CacheBackend = "redis"
	assert.ErrorContains(t, ProcessServerConfig(cfg, in), "invalid cache backend")
}
