package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/robustscore/core"
	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/internal/outwriter"
	"github.com/huangsam/robustscore/internal/table"
	"github.com/huangsam/robustscore/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// requestConfig applies the scoring arguments of a request on top of the
// server defaults.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()

	raw, err := request.RequireString("metrics")
	if err != nil {
		return nil, err
	}
	metrics, err := schema.ParseMetricSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid metrics: %w", err)
	}
	cfg.Metrics = metrics

	if g := request.GetString("group", ""); g != "" {
		cfg.GroupColumns = nil
		for col := range strings.SplitSeq(g, ",") {
			if col = strings.TrimSpace(col); col != "" {
				cfg.GroupColumns = append(cfg.GroupColumns, col)
			}
		}
	}
	if v := request.GetString("transform_col", ""); v != "" {
		cfg.TransformColumn = v
	}
	if v := request.GetString("severity_col", ""); v != "" {
		cfg.SeverityColumn = v
	}
	if v := request.GetString("clean_label", ""); v != "" {
		cfg.CleanLabel = v
	}
	cfg.DecayOverall = request.GetFloat("decay_overall", cfg.DecayOverall)
	cfg.DecayDegradation = request.GetFloat("decay_degradation", cfg.DecayDegradation)
	cfg.SkipInvalid = request.GetBool("skip_invalid", cfg.SkipInvalid)
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = l
	}
	if v := request.GetString("level", ""); v != "" {
		cfg.Level = schema.ReportLevel(v)
	}
	if cfg.Level == "" {
		cfg.Level = schema.BothLevels
	}
	if _, ok := schema.ValidReportLevels[cfg.Level]; !ok {
		return nil, fmt.Errorf("invalid level %q. must be transform, group, both", cfg.Level)
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	cfg.SortBy = request.GetString("sort_by", "")
	if cfg.SortBy != "" {
		if _, ok := cfg.Metrics.Lookup(cfg.SortBy); !ok {
			return nil, fmt.Errorf("sort_by metric %q is not one of %v", cfg.SortBy, cfg.Metrics.Names())
		}
	}
	return cfg, nil
}

// reportResult ranks a result and renders it as the JSON score report.
func reportResult(result *schema.Result, cfg *contract.Config) (*mcp.CallToolResult, error) {
	report := outwriter.BuildScoreReport(core.RankResult(result, cfg), cfg)
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleCalculateRobustness(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("input_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid scoring parameters: %v", err)), nil
	}
	cfg.InputPath = path

	result, err := core.RunScore(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", err)), nil
	}
	return reportResult(result, cfg)
}

func (h *toolHandler) handleCalculateRobustnessCSV(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := request.RequireString("csv_data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid scoring parameters: %v", err)), nil
	}

	tbl, err := table.Parse(strings.NewReader(data), ',')
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid CSV: %v", err)), nil
	}
	result, err := core.Calculate(ctx, tbl, cfg.Options())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", err)), nil
	}
	return reportResult(result, cfg)
}

func (h *toolHandler) handleDescribeFormulas(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decayOverall := request.GetFloat("decay_overall", h.baseCfg.DecayOverall)
	decayDegradation := request.GetFloat("decay_degradation", h.baseCfg.DecayDegradation)
	maxSeverity := request.GetInt("max_severity", schema.DefaultMaxSeverity)

	model, err := core.BuildFormulasModel(h.baseCfg.Metrics, decayOverall, decayDegradation, maxSeverity)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid formula parameters: %v", err)), nil
	}
	jsonData, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode formulas: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
