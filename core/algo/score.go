package algo

import (
	"github.com/huangsam/robustscore/schema"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// OverallScore blends the perturbed stats with the baseline, which takes
// part as an extra item of weight 1:
//
//	(Σ w(s)·stat(s) + baseline) / (Σ w(s) + 1)
//
// It is evaluated as baseline + Σ w(s)·(stat(s) - baseline) / (Σ w(s) + 1)
// so that perturbed stats equal to the baseline return the baseline exactly.
// Mean and std are combined independently with the same weights.
func OverallScore(baseline schema.Stat, perturbed []WeightedStat) (schema.Stat, error) {
	if len(perturbed) == 0 {
		return schema.Stat{}, &schema.CalcError{Kind: schema.KindEmptyWeightSet}
	}
	deviations := make([]schema.Stat, 0, len(perturbed)+1)
	weights := make([]float64, 0, len(perturbed)+1)
	for _, p := range perturbed {
		deviations = append(deviations, schema.Stat{
			Mean: p.Stat.Mean - baseline.Mean,
			Std:  p.Stat.Std - baseline.Std,
		})
		weights = append(weights, p.Weight)
	}
	// The baseline deviates from itself by zero.
	deviations = append(deviations, schema.Stat{})
	weights = append(weights, 1)

	shift := weightedStat(deviations, weights)
	return schema.Stat{
		Mean: baseline.Mean + shift.Mean,
		Std:  baseline.Std + shift.Std,
	}, nil
}

// DegradationScore is the weighted mean of direction-normalized deltas
// against the baseline, excluding the baseline itself:
//
//	Σ w(s)·delta(s) / Σ w(s)
func DegradationScore(baseline schema.Stat, perturbed []WeightedStat, dir schema.Direction) (schema.Stat, error) {
	if len(perturbed) == 0 {
		return schema.Stat{}, &schema.CalcError{Kind: schema.KindEmptyWeightSet}
	}
	deltas := make([]schema.Stat, len(perturbed))
	weights := make([]float64, len(perturbed))
	for i, p := range perturbed {
		deltas[i] = NormalizeDelta(schema.Stat{
			Mean: p.Stat.Mean - baseline.Mean,
			Std:  p.Stat.Std - baseline.Std,
		}, dir)
		weights[i] = p.Weight
	}
	if floats.Sum(weights) == 0 {
		// Only reachable through underflow of rate^severity.
		return schema.Stat{}, &schema.CalcError{Kind: schema.KindEmptyWeightSet, Detail: "weights sum to zero"}
	}
	return weightedStat(deltas, weights), nil
}

// weightedStat takes the weighted mean of each component.
func weightedStat(stats []schema.Stat, weights []float64) schema.Stat {
	means, stds := splitStats(stats)
	return schema.Stat{
		Mean: stat.Mean(means, weights),
		Std:  stat.Mean(stds, weights),
	}
}
