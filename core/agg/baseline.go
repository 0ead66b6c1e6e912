package agg

import (
	"fmt"
	"sort"

	"github.com/huangsam/robustscore/schema"
)

// GroupBuckets is every bucket of one group, in SortBuckets order.
type GroupBuckets struct {
	Group   schema.GroupKey
	Buckets []schema.Bucket
}

// PartitionByGroup splits sorted buckets into contiguous per-group slices.
// Groups are independent units of work from here on.
func PartitionByGroup(buckets []schema.Bucket) []GroupBuckets {
	var out []GroupBuckets
	for _, b := range buckets {
		if n := len(out); n > 0 && out[n-1].Group.ID() == b.Group.ID() {
			out[n-1].Buckets = append(out[n-1].Buckets, b)
			continue
		}
		out = append(out, GroupBuckets{Group: b.Group, Buckets: []schema.Bucket{b}})
	}
	return out
}

// TransformBuckets is the perturbed buckets of one transform, ordered by severity.
type TransformBuckets struct {
	Transform string
	Buckets   []schema.Bucket
}

// GroupSplit is one group separated into its baseline and perturbed sets.
type GroupSplit struct {
	Group     schema.GroupKey
	Baseline  *schema.Baseline   // nil when the group has no clean rows
	Perturbed []TransformBuckets // sorted by transform name
}

// SplitGroup separates a group's clean bucket from its perturbed buckets.
//
// A group must have at most one clean bucket, at the clean severity, and no
// perturbed bucket may sit at the clean severity. Perturbed buckets without a
// baseline are a MissingBaseline error. A group with only a baseline yields
// an empty Perturbed set.
func SplitGroup(gb GroupBuckets, opts schema.Options) (GroupSplit, error) {
	split := GroupSplit{Group: gb.Group}
	var clean []schema.Bucket
	byTransform := make(map[string][]schema.Bucket)

	for _, b := range gb.Buckets {
		if b.Transform == opts.CleanLabel {
			clean = append(clean, b)
			continue
		}
		if b.Severity == opts.CleanSeverity {
			return split, &schema.CalcError{
				Kind:      schema.KindInvalidSeverity,
				Group:     gb.Group,
				Transform: b.Transform,
				Detail:    fmt.Sprintf("severity %d is reserved for %q rows", opts.CleanSeverity, opts.CleanLabel),
			}
		}
		byTransform[b.Transform] = append(byTransform[b.Transform], b)
	}

	switch {
	case len(clean) > 1:
		severities := make([]int, len(clean))
		for i, c := range clean {
			severities[i] = c.Severity
		}
		return split, &schema.CalcError{
			Kind:      schema.KindDuplicateBaseline,
			Group:     gb.Group,
			Transform: opts.CleanLabel,
			Detail:    fmt.Sprintf("clean rows found at severities %v", severities),
		}
	case len(clean) == 1:
		if clean[0].Severity != opts.CleanSeverity {
			return split, &schema.CalcError{
				Kind:      schema.KindInvalidSeverity,
				Group:     gb.Group,
				Transform: opts.CleanLabel,
				Detail:    fmt.Sprintf("clean rows must have severity %d, got %d", opts.CleanSeverity, clean[0].Severity),
			}
		}
		split.Baseline = &schema.Baseline{
			Group:   gb.Group,
			Samples: clean[0].Samples,
			Stats:   clean[0].Stats,
		}
	case len(byTransform) > 0:
		transforms := make([]string, 0, len(byTransform))
		for t := range byTransform {
			transforms = append(transforms, t)
		}
		sort.Strings(transforms)
		return split, &schema.CalcError{
			Kind:      schema.KindMissingBaseline,
			Group:     gb.Group,
			Transform: transforms[0],
			Detail:    fmt.Sprintf("no %q rows for %d perturbed transform(s)", opts.CleanLabel, len(transforms)),
		}
	}

	split.Perturbed = make([]TransformBuckets, 0, len(byTransform))
	for t, buckets := range byTransform {
		sort.Slice(buckets, func(i, j int) bool { return buckets[i].Severity < buckets[j].Severity })
		split.Perturbed = append(split.Perturbed, TransformBuckets{Transform: t, Buckets: buckets})
	}
	sort.Slice(split.Perturbed, func(i, j int) bool {
		return split.Perturbed[i].Transform < split.Perturbed[j].Transform
	})
	return split, nil
}
