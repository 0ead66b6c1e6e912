package schema

import "time"

// AnalysisRunRecord represents a row from the robustscore_runs table.
type AnalysisRunRecord struct {
	RunID           int64
	StartTime       time.Time
	EndTime         *time.Time
	RunDurationMs   *int32
	InputPath       string
	TotalGroups     int32
	TotalTransforms int32
	ConfigParams    *string
}

// ScoreValueRecord represents a row from the robustscore_scores table.
// Values are stored in long format: one row per (level, group, transform, section, metric).
type ScoreValueRecord struct {
	RunID     int64
	Level     ReportLevel // transform or group
	GroupKey  string      // GroupKey.Encode()
	Transform string      // empty for group-level rows
	Section   string      // Overall or Degradation
	Metric    string
	Mean      float64
	Std       float64
}

// Records flattens both output tables into long-format score values.
func (r *Result) Records(runID int64) []ScoreValueRecord {
	var out []ScoreValueRecord
	add := func(level ReportLevel, group GroupKey, transform, section string, stats map[string]Stat) {
		for _, name := range r.Metrics.Names() {
			st, ok := stats[name]
			if !ok {
				continue
			}
			out = append(out, ScoreValueRecord{
				RunID:     runID,
				Level:     level,
				GroupKey:  group.Encode(),
				Transform: transform,
				Section:   section,
				Metric:    name,
				Mean:      st.Mean,
				Std:       st.Std,
			})
		}
	}
	for _, row := range r.TransformLevel {
		add(TransformLevel, row.Group, row.Transform, SectionOverall, row.Overall)
		add(TransformLevel, row.Group, row.Transform, SectionDegradation, row.Degradation)
	}
	for _, roll := range r.GroupLevel {
		add(GroupLevel, roll.Group, "", SectionOverall, roll.Overall)
		add(GroupLevel, roll.Group, "", SectionDegradation, roll.Degradation)
	}
	return out
}
