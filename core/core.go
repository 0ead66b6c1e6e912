// Package core runs the robustness scoring pipeline: aggregation, baseline
// extraction, weighted scoring and the per-group rollup.
package core

import (
	"context"
	"errors"
	"runtime"

	"github.com/alitto/pond"
	"github.com/huangsam/robustscore/core/agg"
	"github.com/huangsam/robustscore/core/algo"
	"github.com/huangsam/robustscore/schema"
)

// ValidateOptions checks everything that can be checked without the table.
func ValidateOptions(opts schema.Options) error {
	rates := []struct {
		name string
		rate float64
	}{
		{"overall", opts.DecayOverall},
		{"degradation", opts.DecayDegradation},
	}
	for _, r := range rates {
		if err := algo.ValidateDecayRate(r.rate); err != nil {
			var ce *schema.CalcError
			if errors.As(err, &ce) {
				ce.Detail = r.name + " " + ce.Detail
			}
			return err
		}
	}
	if err := opts.Metrics.Validate(); err != nil {
		return err
	}
	if opts.TransformColumn == "" {
		return &schema.CalcError{Kind: schema.KindMissingColumn, Detail: "transform column is not configured"}
	}
	if opts.SeverityColumn == "" {
		return &schema.CalcError{Kind: schema.KindMissingColumn, Detail: "severity column is not configured"}
	}
	return nil
}

// Calculate runs the whole pipeline over an in-memory table.
func Calculate(ctx context.Context, table *schema.MetricTable, opts schema.Options) (*schema.Result, error) {
	buckets, err := AggregateTable(table, opts)
	if err != nil {
		return nil, err
	}
	return ScoreBuckets(ctx, buckets, opts)
}

// AggregateTable validates the options and returns one bucket per distinct
// (group, transform, severity) in the table.
func AggregateTable(table *schema.MetricTable, opts schema.Options) ([]schema.Bucket, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.New("metric table is nil")
	}
	return agg.AggregateBuckets(table, opts)
}

// groupOutcome is the result slot of one group task.
type groupOutcome struct {
	rows    []schema.ScoreRow
	rollup  *schema.GroupRollup
	skipped *schema.GroupIssue
	err     error
}

// ScoreBuckets extracts baselines, scores every transform and rolls the
// rows up per group. Groups are scored in parallel; when several groups fail,
// the error of the first group in key order is returned.
func ScoreBuckets(ctx context.Context, buckets []schema.Bucket, opts schema.Options) (*schema.Result, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	sorted := make([]schema.Bucket, len(buckets))
	copy(sorted, buckets)
	agg.SortBuckets(sorted)
	groups := agg.PartitionByGroup(sorted)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool := pond.New(workers, len(groups))
	defer pool.StopAndWait()

	outcomes := make([]groupOutcome, len(groups))
	tasks := pool.Group()
	for i, gb := range groups {
		tasks.Submit(func() {
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return
			}
			outcomes[i] = scoreGroup(gb, opts)
		})
	}
	tasks.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &schema.Result{
		GroupColumns:   opts.GroupColumns,
		Metrics:        opts.Metrics,
		TransformLevel: []schema.ScoreRow{},
		GroupLevel:     []schema.GroupRollup{},
	}
	for _, out := range outcomes {
		switch {
		case out.err != nil:
			return nil, out.err
		case out.skipped != nil:
			result.Skipped = append(result.Skipped, *out.skipped)
		default:
			result.TransformLevel = append(result.TransformLevel, out.rows...)
			if out.rollup != nil {
				result.GroupLevel = append(result.GroupLevel, *out.rollup)
			}
		}
	}
	return result, nil
}

// skippable reports whether a group-level error may be skipped under SkipInvalid.
func skippable(err error) bool {
	return errors.Is(err, schema.ErrMissingBaseline) ||
		errors.Is(err, schema.ErrDuplicateBaseline) ||
		errors.Is(err, schema.ErrInvalidSeverity)
}
