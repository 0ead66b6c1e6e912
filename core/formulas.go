package core

import (
	"fmt"

	"github.com/huangsam/robustscore/core/algo"
	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/internal/outwriter"
	"github.com/huangsam/robustscore/schema"
)

// BuildFormulasModel describes both scores with the given decay rates and
// lists the weight of every severity from 0 to maxSeverity.
func BuildFormulasModel(metrics schema.MetricSpec, decayOverall, decayDegradation float64, maxSeverity int) (*schema.FormulasRenderModel, error) {
	if err := algo.ValidateDecayRate(decayOverall); err != nil {
		return nil, err
	}
	if err := algo.ValidateDecayRate(decayDegradation); err != nil {
		return nil, err
	}
	if maxSeverity < 0 {
		return nil, fmt.Errorf("max severity %d must not be negative", maxSeverity)
	}

	weights := make([]schema.SeverityWeight, 0, maxSeverity+1)
	for s := 0; s <= maxSeverity; s++ {
		weights = append(weights, schema.SeverityWeight{
			Severity:    s,
			Overall:     algo.SeverityWeight(s, decayOverall),
			Degradation: algo.SeverityWeight(s, decayDegradation),
		})
	}

	return &schema.FormulasRenderModel{
		Title:       "Robustness Scores",
		Description: "Each (group, transform) pair is summarized by two severity-weighted scores per metric. Weights decay geometrically so mild corruptions count most.",
		Scores: []schema.ScoreDefinition{
			{
				Name:      schema.SectionOverall,
				Purpose:   "Expected metric value across the clean baseline and every severity",
				Formula:   "(Σ w_s·stat_s + baseline) / (Σ w_s + 1), w_s = rate^s",
				DecayRate: decayOverall,
			},
			{
				Name:      schema.SectionDegradation,
				Purpose:   "Expected loss relative to the clean baseline, positive when the metric got worse",
				Formula:   "Σ w_s·Δ_s / Σ w_s, Δ_s = stat_s - baseline (negated when higher is better), w_s = rate^s",
				DecayRate: decayDegradation,
			},
		},
		Weights: weights,
		Metrics: metrics,
		Notes: map[string]string{
			"baseline":  "The clean rows of a group (clean label at the clean severity) act as weight-1 anchor for Overall.",
			"direction": "Degradation means are negated for higher-is-better metrics so a positive value always means worse. Std deltas are never negated.",
			"std":       "Bucket statistics use the sample standard deviation; a single sample has std 0. Score stds are weight-averaged like the means, which keeps the reference numbers but is not a pooled variance.",
			"missing":   "Empty cells and nan, na, n/a, null, none are skipped per metric.",
		},
	}, nil
}

// ExecuteFormulas prints the score definitions for the configured decay rates.
func ExecuteFormulas(cfg *contract.Config) error {
	model, err := BuildFormulasModel(cfg.Metrics, cfg.DecayOverall, cfg.DecayDegradation, schema.DefaultMaxSeverity)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteFormulas(model, cfg)
}
