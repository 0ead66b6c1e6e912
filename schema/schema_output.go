package schema

import "math"

// EnrichedScoreRow adds presentation data to a ScoreRow.
type EnrichedScoreRow struct {
	Rank  int    `json:"rank" yaml:"rank"`
	Label string `json:"label" yaml:"label"`
	ScoreRow `yaml:",inline"`
}

// GetPlainLabel returns a plain text label for a relative degradation,
// i.e. the normalized mean drop divided by the baseline magnitude.
func GetPlainLabel(relativeDrop float64) string {
	switch {
	case math.IsNaN(relativeDrop):
		return "Unknown"
	case relativeDrop >= 0.20:
		return "Critical"
	case relativeDrop >= 0.10:
		return "High"
	case relativeDrop >= 0.02:
		return "Moderate"
	default:
		return "Low"
	}
}

// RelativeDrop returns the Degradation mean of metric as a fraction of the
// baseline mean. A zero baseline yields NaN.
func (r ScoreRow) RelativeDrop(metric string) float64 {
	base := math.Abs(r.Baseline[metric].Mean)
	if base == 0 {
		return math.NaN()
	}
	return r.Degradation[metric].Mean / base
}

// EnrichRows adds rank and label to a list of score rows. The label is
// driven by labelMetric, which is normally the first declared metric.
func EnrichRows(rows []ScoreRow, labelMetric string) []EnrichedScoreRow {
	output := make([]EnrichedScoreRow, len(rows))
	for i, r := range rows {
		output[i] = EnrichedScoreRow{
			Rank:     i + 1,
			Label:    GetPlainLabel(r.RelativeDrop(labelMetric)),
			ScoreRow: r,
		}
	}
	return output
}
