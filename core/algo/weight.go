// Package algo holds the numeric building blocks of robustness scoring:
// sample statistics, severity weights, direction normalization and the two
// weighted scorers.
package algo

import (
	"fmt"
	"math"

	"github.com/huangsam/robustscore/schema"
)

// ValidateDecayRate rejects rates outside (0, 1]. A rate of 1 weights every
// severity equally; smaller rates discount higher severities faster.
func ValidateDecayRate(rate float64) error {
	if math.IsNaN(rate) || rate <= 0 || rate > 1 {
		return &schema.CalcError{
			Kind:   schema.KindInvalidDecayRate,
			Detail: fmt.Sprintf("decay rate %v must be in (0, 1]", rate),
		}
	}
	return nil
}

// SeverityWeight returns rate^severity. The rate must already be validated;
// severity is a non-negative integer level.
func SeverityWeight(severity int, rate float64) float64 {
	return math.Pow(rate, float64(severity))
}

// WeightedStat pairs a perturbed bucket statistic with its severity weight.
type WeightedStat struct {
	Severity int
	Weight   float64
	Stat     schema.Stat
}

// WeighBuckets extracts one metric from each perturbed bucket and attaches
// rate^severity to it.
func WeighBuckets(buckets []schema.Bucket, metric string, rate float64) []WeightedStat {
	out := make([]WeightedStat, len(buckets))
	for i, b := range buckets {
		out[i] = WeightedStat{
			Severity: b.Severity,
			Weight:   SeverityWeight(b.Severity, rate),
			Stat:     b.Stats[metric],
		}
	}
	return out
}
