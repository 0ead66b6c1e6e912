package core

import (
	"github.com/huangsam/robustscore/core/agg"
	"github.com/huangsam/robustscore/core/algo"
	"github.com/huangsam/robustscore/schema"
)

// combineRow joins the two score sections of one transform into a ScoreRow.
func combineRow(base schema.Baseline, tb agg.TransformBuckets, overall, degradation map[string]schema.Stat) schema.ScoreRow {
	return schema.ScoreRow{
		Group:       base.Group,
		Transform:   tb.Transform,
		Severities:  len(tb.Buckets),
		Baseline:    base.Stats,
		Overall:     overall,
		Degradation: degradation,
	}
}

// rollupGroup averages every metric of both sections across the group's
// transforms, each transform counting once.
func rollupGroup(group schema.GroupKey, rows []schema.ScoreRow, metrics schema.MetricSpec) schema.GroupRollup {
	rollup := schema.GroupRollup{
		Group:       group,
		Transforms:  len(rows),
		Overall:     make(map[string]schema.Stat, len(metrics)),
		Degradation: make(map[string]schema.Stat, len(metrics)),
	}
	for _, m := range metrics {
		overall := make([]schema.Stat, len(rows))
		degradation := make([]schema.Stat, len(rows))
		for i, row := range rows {
			overall[i] = row.Overall[m.Name]
			degradation[i] = row.Degradation[m.Name]
		}
		rollup.Overall[m.Name] = algo.MeanOfStats(overall)
		rollup.Degradation[m.Name] = algo.MeanOfStats(degradation)
	}
	return rollup
}
