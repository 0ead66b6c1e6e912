package core

import (
	"errors"

	"github.com/huangsam/robustscore/core/agg"
	"github.com/huangsam/robustscore/core/algo"
	"github.com/huangsam/robustscore/schema"
)

// scoreGroup runs the per-group stages in order: split off the baseline,
// score each transform, then roll the rows up.
func scoreGroup(gb agg.GroupBuckets, opts schema.Options) groupOutcome {
	split, err := agg.SplitGroup(gb, opts)
	if err != nil {
		if opts.SkipInvalid && skippable(err) {
			return groupOutcome{skipped: &schema.GroupIssue{Group: gb.Group, Reason: err.Error()}}
		}
		return groupOutcome{err: err}
	}
	if split.Baseline == nil || len(split.Perturbed) == 0 {
		return groupOutcome{}
	}

	rows := make([]schema.ScoreRow, 0, len(split.Perturbed))
	for _, tb := range split.Perturbed {
		row, err := scoreTransform(*split.Baseline, tb, opts)
		if err != nil {
			return groupOutcome{err: err}
		}
		rows = append(rows, row)
	}
	rollup := rollupGroup(split.Group, rows, opts.Metrics)
	return groupOutcome{rows: rows, rollup: &rollup}
}

// scoreTransform computes both scores for every metric of one transform.
func scoreTransform(base schema.Baseline, tb agg.TransformBuckets, opts schema.Options) (schema.ScoreRow, error) {
	overall := make(map[string]schema.Stat, len(opts.Metrics))
	degradation := make(map[string]schema.Stat, len(opts.Metrics))

	for _, m := range opts.Metrics {
		ref := base.Stats[m.Name]

		o, err := algo.OverallScore(ref, algo.WeighBuckets(tb.Buckets, m.Name, opts.DecayOverall))
		if err != nil {
			return schema.ScoreRow{}, withLocation(err, base.Group, tb.Transform, m.Name)
		}
		d, err := algo.DegradationScore(ref, algo.WeighBuckets(tb.Buckets, m.Name, opts.DecayDegradation), m.Direction)
		if err != nil {
			return schema.ScoreRow{}, withLocation(err, base.Group, tb.Transform, m.Name)
		}
		overall[m.Name] = o
		degradation[m.Name] = d
	}
	return combineRow(base, tb, overall, degradation), nil
}

// withLocation fills in where a scorer error happened.
func withLocation(err error, group schema.GroupKey, transform, metric string) error {
	var ce *schema.CalcError
	if errors.As(err, &ce) {
		ce.Group = group
		ce.Transform = transform
		ce.Column = metric
	}
	return err
}
