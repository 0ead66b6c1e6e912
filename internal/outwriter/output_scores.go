package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/internal/parquet"
	"github.com/huangsam/robustscore/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ScoreReport is the document emitted for JSON and YAML output and by the MCP tools.
type ScoreReport struct {
	GroupColumns   []string                  `json:"group_columns" yaml:"group_columns"`
	Metrics        schema.MetricSpec         `json:"metrics" yaml:"metrics"`
	TransformLevel []schema.EnrichedScoreRow `json:"transform_level,omitempty" yaml:"transform_level,omitempty"`
	GroupLevel     []schema.GroupRollup      `json:"group_level,omitempty" yaml:"group_level,omitempty"`
	Skipped        []schema.GroupIssue       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// labelMetric picks the metric that drives the Label column.
func labelMetric(result *schema.Result, cfg *contract.Config) string {
	if cfg.SortBy != "" {
		return cfg.SortBy
	}
	if len(result.Metrics) > 0 {
		return result.Metrics[0].Name
	}
	return ""
}

func showTransforms(level schema.ReportLevel) bool {
	return level != schema.GroupLevel
}

func showGroups(level schema.ReportLevel) bool {
	return level != schema.TransformLevel
}

// BuildScoreReport selects the tables cfg.Level asks for and labels the transform rows.
func BuildScoreReport(result *schema.Result, cfg *contract.Config) ScoreReport {
	report := ScoreReport{
		GroupColumns: result.GroupColumns,
		Metrics:      result.Metrics,
		Skipped:      result.Skipped,
	}
	if showTransforms(cfg.Level) {
		report.TransformLevel = schema.EnrichRows(result.TransformLevel, labelMetric(result, cfg))
	}
	if showGroups(cfg.Level) {
		report.GroupLevel = result.GroupLevel
	}
	return report
}

// filterRecords keeps only the score values of the requested level.
func filterRecords(records []schema.ScoreValueRecord, level schema.ReportLevel) []schema.ScoreValueRecord {
	if level == schema.BothLevels || level == "" {
		return records
	}
	out := make([]schema.ScoreValueRecord, 0, len(records))
	for _, r := range records {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// WriteScoreResults dispatches a calculation result to the configured output format.
func WriteScoreResults(result *schema.Result, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, BuildScoreReport(result, cfg))
		}, "Wrote JSON")
	case schema.YAMLOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeYAML(w, BuildScoreReport(result, cfg))
		}, "Wrote YAML")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoresCSV(w, result, cfg, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			records := filterRecords(result.Records(0), cfg.Level)
			return parquet.WriteScoreValuesTo(w, parquet.ConvertScoreRecords(records))
		}, "Wrote Parquet")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoresTable(w, result, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

// scoreHeaders returns one column per (section, metric, statistic), e.g. "Overall/DSC/mean".
func scoreHeaders(metrics schema.MetricSpec) []string {
	var headers []string
	for _, section := range []string{schema.SectionOverall, schema.SectionDegradation} {
		for _, m := range metrics {
			headers = append(headers,
				section+"/"+m.Name+"/"+schema.StatMean,
				section+"/"+m.Name+"/"+schema.StatStd,
			)
		}
	}
	return headers
}

func scoreCells(metrics schema.MetricSpec, overall, degradation map[string]schema.Stat, fmtFloat func(float64) string) []string {
	var cells []string
	for _, stats := range []map[string]schema.Stat{overall, degradation} {
		for _, m := range metrics {
			st, ok := stats[m.Name]
			if !ok {
				cells = append(cells, "", "")
				continue
			}
			cells = append(cells, fmtFloat(st.Mean), fmtFloat(st.Std))
		}
	}
	return cells
}

// groupCells pads or trims a group key to the declared grouping columns.
func groupCells(columns []string, key schema.GroupKey) []string {
	cells := make([]string, len(columns))
	copy(cells, key)
	return cells
}

// writeScoresCSV writes both tables into one flat CSV. The level column tells
// the row kinds apart and transform is empty on group rows.
func writeScoresCSV(w io.Writer, result *schema.Result, cfg *contract.Config, fmtFloat func(float64) string) error {
	header := []string{"level"}
	header = append(header, result.GroupColumns...)
	header = append(header, "transform", "count", "label")
	header = append(header, scoreHeaders(result.Metrics)...)

	report := BuildScoreReport(result, cfg)
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range report.TransformLevel {
			row := []string{string(schema.TransformLevel)}
			row = append(row, groupCells(result.GroupColumns, r.Group)...)
			row = append(row, r.Transform, strconv.Itoa(r.Severities), r.Label)
			row = append(row, scoreCells(result.Metrics, r.Overall, r.Degradation, fmtFloat)...)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		for _, g := range report.GroupLevel {
			row := []string{string(schema.GroupLevel)}
			row = append(row, groupCells(result.GroupColumns, g.Group)...)
			row = append(row, "", strconv.Itoa(g.Transforms), "")
			row = append(row, scoreCells(result.Metrics, g.Overall, g.Degradation, fmtFloat)...)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// formatStat renders "mean ± std".
func formatStat(st schema.Stat, fmtFloat func(float64) string) string {
	return fmtFloat(st.Mean) + " ± " + fmtFloat(st.Std)
}

func newScoreTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

// writeScoresTable renders the selected tables for the terminal.
func writeScoresTable(w io.Writer, result *schema.Result, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	labelWidth := GetMaxLabelWidth(cfg)
	grouped := len(result.GroupColumns) > 0

	if showTransforms(cfg.Level) {
		headers := []string{"Rank"}
		if grouped {
			headers = append(headers, "Group")
		}
		headers = append(headers, "Transform", "Sev")
		for _, m := range result.Metrics {
			headers = append(headers, m.Name+" Overall", m.Name+" Degr.")
		}
		headers = append(headers, "Label")

		table := newScoreTable(w, headers)
		var data [][]string
		for _, r := range schema.EnrichRows(result.TransformLevel, labelMetric(result, cfg)) {
			row := []string{strconv.Itoa(r.Rank)}
			if grouped {
				row = append(row, contract.TruncateText(r.Group.String(), labelWidth))
			}
			row = append(row, contract.TruncateText(r.Transform, labelWidth), strconv.Itoa(r.Severities))
			for _, m := range result.Metrics {
				deg := r.Degradation[m.Name]
				row = append(row,
					formatStat(r.Overall[m.Name], fmtFloat),
					contract.ColorDelta(deg.Mean, formatStat(deg, fmtFloat)),
				)
			}
			row = append(row, contract.GetColorLabel(r.RelativeDrop(labelMetric(result, cfg))))
			data = append(data, row)
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if showGroups(cfg.Level) {
		headers := []string{"Group", "Transforms"}
		for _, m := range result.Metrics {
			headers = append(headers, m.Name+" Overall", m.Name+" Degr.")
		}

		table := newScoreTable(w, headers)
		var data [][]string
		for _, g := range result.GroupLevel {
			row := []string{contract.TruncateText(g.Group.String(), labelWidth), strconv.Itoa(g.Transforms)}
			for _, m := range result.Metrics {
				deg := g.Degradation[m.Name]
				row = append(row,
					formatStat(g.Overall[m.Name], fmtFloat),
					contract.ColorDelta(deg.Mean, formatStat(deg, fmtFloat)),
				)
			}
			data = append(data, row)
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	for _, issue := range result.Skipped {
		if _, err := fmt.Fprintf(w, "Skipped group %s: %s\n", issue.Group, issue.Reason); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Scored %d transforms across %d groups\n", len(result.TransformLevel), len(result.GroupLevel)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Analysis completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}
