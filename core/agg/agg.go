// Package agg has the aggregation logic that turns raw sample rows into
// per-severity buckets and splits each group into baseline and perturbed sets.
package agg

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/huangsam/robustscore/core/algo"
	"github.com/huangsam/robustscore/schema"
)

// columnLayout holds the resolved column positions for one table.
type columnLayout struct {
	groups    []int
	transform int
	severity  int
	metrics   []int
}

// resolveColumns looks up every configured column. Each missing column is a
// MissingColumn error; nothing is aggregated until the layout is complete.
func resolveColumns(table *schema.MetricTable, opts schema.Options) (columnLayout, error) {
	var layout columnLayout
	find := func(name string) (int, error) {
		idx, ok := table.ColumnIndex(name)
		if !ok {
			return -1, &schema.CalcError{Kind: schema.KindMissingColumn, Column: name}
		}
		return idx, nil
	}

	var err error
	for _, g := range opts.GroupColumns {
		idx, err := find(g)
		if err != nil {
			return layout, err
		}
		layout.groups = append(layout.groups, idx)
	}
	if layout.transform, err = find(opts.TransformColumn); err != nil {
		return layout, err
	}
	if layout.severity, err = find(opts.SeverityColumn); err != nil {
		return layout, err
	}
	for _, m := range opts.Metrics {
		idx, err := find(m.Name)
		if err != nil {
			return layout, err
		}
		layout.metrics = append(layout.metrics, idx)
	}
	return layout, nil
}

// bucketKey identifies one (group, transform, severity) partition.
type bucketKey struct {
	group     string
	transform string
	severity  int
}

// bucketAcc accumulates every metric of one bucket.
type bucketAcc struct {
	group   schema.GroupKey
	samples int
	metrics []algo.Accumulator
}

// parseSeverity accepts integers, including float renderings such as "3.0"
// that spreadsheet exports produce.
func parseSeverity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	// float64(math.MaxInt) rounds up to 2^63, which int cannot hold.
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, strconv.ErrRange
	}
	return int(f), nil
}

// isMissing reports whether a metric cell holds no value.
func isMissing(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "nan", "na", "n/a", "null", "none":
		return true
	}
	return false
}

// AggregateBuckets partitions the table by (group, transform, severity) and
// computes the mean and sample std of every metric inside each partition.
// Missing metric cells are skipped per metric. Buckets are returned sorted
// by group, transform and severity.
func AggregateBuckets(table *schema.MetricTable, opts schema.Options) ([]schema.Bucket, error) {
	layout, err := resolveColumns(table, opts)
	if err != nil {
		return nil, err
	}

	accs := make(map[bucketKey]*bucketAcc)
	for _, row := range table.Rows {
		group := make(schema.GroupKey, len(layout.groups))
		for i, idx := range layout.groups {
			group[i] = cell(row, idx)
		}
		transform := cell(row, layout.transform)

		severity, err := parseSeverity(cell(row, layout.severity))
		if err != nil {
			return nil, &schema.CalcError{
				Kind:      schema.KindInvalidValue,
				Group:     group,
				Transform: transform,
				Column:    table.Columns[layout.severity],
				Detail:    "severity is not an integer",
				Err:       err,
			}
		}
		if severity < 0 {
			return nil, &schema.CalcError{
				Kind:      schema.KindInvalidSeverity,
				Group:     group,
				Transform: transform,
				Detail:    "severity " + strconv.Itoa(severity) + " is negative",
			}
		}

		key := bucketKey{group: group.ID(), transform: transform, severity: severity}
		acc, ok := accs[key]
		if !ok {
			acc = &bucketAcc{group: group, metrics: make([]algo.Accumulator, len(layout.metrics))}
			accs[key] = acc
		}
		acc.samples++

		for i, idx := range layout.metrics {
			raw := strings.TrimSpace(cell(row, idx))
			if isMissing(raw) {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &schema.CalcError{
					Kind:      schema.KindInvalidValue,
					Group:     group,
					Transform: transform,
					Column:    opts.Metrics[i].Name,
					Err:       err,
				}
			}
			if math.IsInf(v, 0) {
				return nil, &schema.CalcError{
					Kind:      schema.KindInvalidValue,
					Group:     group,
					Transform: transform,
					Column:    opts.Metrics[i].Name,
					Detail:    "value " + raw + " is not finite",
				}
			}
			acc.metrics[i].Add(v)
		}
	}

	buckets := make([]schema.Bucket, 0, len(accs))
	for key, acc := range accs {
		stats := make(map[string]schema.Stat, len(opts.Metrics))
		for i, m := range opts.Metrics {
			if acc.metrics[i].Count() == 0 {
				return nil, &schema.CalcError{
					Kind:      schema.KindEmptyBucket,
					Group:     acc.group,
					Transform: key.transform,
					Column:    m.Name,
					Detail:    "severity " + strconv.Itoa(key.severity) + " has no usable values",
				}
			}
			stats[m.Name] = acc.metrics[i].Stat()
		}
		buckets = append(buckets, schema.Bucket{
			Group:     acc.group,
			Transform: key.transform,
			Severity:  key.severity,
			Samples:   acc.samples,
			Stats:     stats,
		})
	}

	SortBuckets(buckets)
	return buckets, nil
}

// SortBuckets orders buckets by group, transform and severity.
func SortBuckets(buckets []schema.Bucket) {
	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.Group.ID() != b.Group.ID() {
			return a.Group.Less(b.Group)
		}
		if a.Transform != b.Transform {
			return a.Transform < b.Transform
		}
		return a.Severity < b.Severity
	})
}

// cell returns the trimmed value at idx, or "" for short rows.
func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
