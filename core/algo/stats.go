package algo

import (
	"github.com/huangsam/robustscore/schema"
	"gonum.org/v1/gonum/stat"
)

// Accumulator collects the usable values of one metric inside one bucket.
type Accumulator struct {
	values []float64
}

// Add folds one value into the accumulator.
func (a *Accumulator) Add(v float64) {
	a.values = append(a.values, v)
}

// Count returns how many values were added.
func (a *Accumulator) Count() int { return len(a.values) }

// Stat returns the mean and sample standard deviation of the collected values.
func (a *Accumulator) Stat() schema.Stat {
	return SampleStat(a.values)
}

// SampleStat returns the mean and sample standard deviation (n-1
// denominator). A single value has std 0 and an empty slice yields the zero Stat.
func SampleStat(values []float64) schema.Stat {
	switch len(values) {
	case 0:
		return schema.Stat{}
	case 1:
		return schema.Stat{Mean: values[0]}
	}
	mean, std := stat.MeanStdDev(values, nil)
	return schema.Stat{Mean: mean, Std: std}
}

// MeanOfStats averages a list of stats component-wise.
func MeanOfStats(stats []schema.Stat) schema.Stat {
	if len(stats) == 0 {
		return schema.Stat{}
	}
	means, stds := splitStats(stats)
	return schema.Stat{Mean: stat.Mean(means, nil), Std: stat.Mean(stds, nil)}
}

// splitStats separates the mean and std components for gonum.
func splitStats(stats []schema.Stat) (means, stds []float64) {
	means = make([]float64, len(stats))
	stds = make([]float64, len(stats))
	for i, s := range stats {
		means[i] = s.Mean
		stds[i] = s.Std
	}
	return means, stds
}
