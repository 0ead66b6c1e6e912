// Package parquet exports run history and score tables to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/robustscore/schema"
	"github.com/parquet-go/parquet-go"
)

// Run is one recorded scoring run. Maps to the robustscore_runs table.
type Run struct {
	RunID           int64      `parquet:"run_id,snappy"`
	StartTime       time.Time  `parquet:"start_time,snappy"`
	EndTime         *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs   *int32     `parquet:"run_duration_ms,optional,snappy"`
	InputPath       string     `parquet:"input_path,snappy"`
	TotalGroups     int32      `parquet:"total_groups,snappy"`
	TotalTransforms int32      `parquet:"total_transforms,snappy"`

	// ConfigParams holds the JSON-encoded options of the run
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// ScoreValue is one long-format output value. Maps to the robustscore_scores table.
type ScoreValue struct {
	RunID     int64   `parquet:"run_id,snappy"`
	Level     string  `parquet:"level,dict"`
	GroupKey  string  `parquet:"group_key,dict"`
	Transform string  `parquet:"transform,dict"`
	Section   string  `parquet:"section,dict"`
	Metric    string  `parquet:"metric,dict"`
	Mean      float64 `parquet:"mean,snappy"`
	Std       float64 `parquet:"std,snappy"`
}

// WriteRuns writes runs to a Parquet file at outputPath.
func WriteRuns(data []Run, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteScoreValues writes score values to a Parquet file at outputPath.
func WriteScoreValues(data []ScoreValue, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteScoreValuesTo streams score values as Parquet into w.
func WriteScoreValuesTo(w io.Writer, data []ScoreValue) error {
	return writeRows(w, data)
}

func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeRows(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// writeRows infers the schema from T's struct tags. The footer is only
// written on Close, so its error matters.
func writeRows[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertRunRecords converts stored runs for Parquet export.
func ConvertRunRecords(records []schema.AnalysisRunRecord) []Run {
	result := make([]Run, len(records))
	for i, r := range records {
		result[i] = Run{
			RunID:           r.RunID,
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			RunDurationMs:   r.RunDurationMs,
			InputPath:       r.InputPath,
			TotalGroups:     r.TotalGroups,
			TotalTransforms: r.TotalTransforms,
			ConfigParams:    r.ConfigParams,
		}
	}
	return result
}

// ConvertScoreRecords converts long-format score values for Parquet export.
func ConvertScoreRecords(records []schema.ScoreValueRecord) []ScoreValue {
	result := make([]ScoreValue, len(records))
	for i, r := range records {
		result[i] = ScoreValue{
			RunID:     r.RunID,
			Level:     string(r.Level),
			GroupKey:  r.GroupKey,
			Transform: r.Transform,
			Section:   r.Section,
			Metric:    r.Metric,
			Mean:      r.Mean,
			Std:       r.Std,
		}
	}
	return result
}
