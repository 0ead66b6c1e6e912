package core

import (
	"context"
	"time"

	"github.com/huangsam/robustscore/core/agg"
	"github.com/huangsam/robustscore/core/algo"
	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/internal/outwriter"
	"github.com/huangsam/robustscore/internal/table"
	"github.com/huangsam/robustscore/schema"
)

// ExecutorFunc defines the function signature for the CLI entry points.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteScore reads the input table, scores it and prints the result.
// It serves as the main entry point for the 'score' command.
func ExecuteScore(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	result, err := RunScore(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	ranked := RankResult(result, cfg)
	return outwriter.NewOutWriter().WriteResult(ranked, cfg, time.Since(start))
}

// RunScore scores the configured input file, reusing cached aggregates and
// recording the run when the manager provides those stores.
func RunScore(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.Result, error) {
	opts := cfg.Options()
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	var (
		aggregateStore contract.CacheStore
		analysisStore  contract.AnalysisStore
	)
	if mgr != nil {
		aggregateStore = mgr.GetAggregateStore()
		analysisStore = mgr.GetAnalysisStore()
	}

	contract.LogDebug("Scoring input", "path", cfg.InputPath, "metrics", cfg.Metrics.String(), "workers", cfg.Workers)
	runID := beginRun(analysisStore, cfg)

	tbl, fingerprint, err := table.ReadFile(cfg.InputPath, cfg.Delimiter)
	if err != nil {
		return nil, err
	}
	buckets, err := agg.CachedAggregateBuckets(tbl, opts, aggregateStore, fingerprint)
	if err != nil {
		return nil, err
	}
	result, err := ScoreBuckets(ctx, buckets, opts)
	if err != nil {
		return nil, err
	}

	for _, issue := range result.Skipped {
		contract.LogInfo("Skipped group", "group", issue.Group.String(), "reason", issue.Reason)
	}
	endRun(analysisStore, runID, result)
	return result, nil
}

// beginRun opens a run in the history store. It returns 0 when tracking is
// off or the store refused the run.
func beginRun(store contract.AnalysisStore, cfg *contract.Config) int64 {
	if store == nil {
		return 0
	}
	params := map[string]any{
		"metrics":           cfg.Metrics.String(),
		"group_columns":     cfg.GroupColumns,
		"transform_column":  cfg.TransformColumn,
		"severity_column":   cfg.SeverityColumn,
		"clean_label":       cfg.CleanLabel,
		"clean_severity":    cfg.CleanSeverity,
		"decay_overall":     cfg.DecayOverall,
		"decay_degradation": cfg.DecayDegradation,
		"skip_invalid":      cfg.SkipInvalid,
		"workers":           cfg.Workers,
	}
	runID, err := store.BeginAnalysis(time.Now(), cfg.InputPath, params)
	if err != nil {
		contract.LogWarn("Analysis tracking initialization failed", err)
		return 0
	}
	return runID
}

// endRun stores the score values and closes the run.
func endRun(store contract.AnalysisStore, runID int64, result *schema.Result) {
	if store == nil || runID <= 0 {
		return
	}
	if err := store.RecordScores(runID, result.Records(runID)); err != nil {
		contract.LogWarn("Failed to record score values", err)
	}
	if err := store.EndAnalysis(runID, time.Now(), len(result.GroupLevel), len(result.TransformLevel)); err != nil {
		contract.LogWarn("Failed to finalize analysis tracking", err)
	}
}

// RankResult orders transform rows by degradation when a sort metric or a
// limit was requested. Otherwise the key order is kept.
func RankResult(result *schema.Result, cfg *contract.Config) *schema.Result {
	if cfg.SortBy == "" && cfg.ResultLimit <= 0 {
		return result
	}
	metric := cfg.SortBy
	if metric == "" && len(result.Metrics) > 0 {
		metric = result.Metrics[0].Name
	}
	ranked := *result
	ranked.TransformLevel = algo.RankRows(result.TransformLevel, metric, cfg.ResultLimit)
	return &ranked
}
