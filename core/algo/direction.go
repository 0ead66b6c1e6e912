package algo

import "github.com/huangsam/robustscore/schema"

// NormalizeDelta orients a perturbed-minus-baseline delta so that a positive
// mean always means "got worse". Only the mean flips for higher-is-better
// metrics; the std delta keeps its raw sign for both directions.
func NormalizeDelta(delta schema.Stat, dir schema.Direction) schema.Stat {
	if dir == schema.HigherIsBetter {
		delta.Mean = -delta.Mean
	}
	return delta
}
