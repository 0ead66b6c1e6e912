// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scoringArgs are shared by both scoring tools.
func scoringArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("metrics", mcp.Description("Metrics to score as name:direction pairs, e.g. 'DSC:higher,HD95:lower'."), mcp.Required()),
		mcp.WithString("group", mcp.Description("Comma-separated grouping columns, e.g. 'Model,Task'. Empty scores the whole table as one group.")),
		mcp.WithString("transform_col", mcp.Description("Column naming the corruption transform.")),
		mcp.WithString("severity_col", mcp.Description("Column holding the integer severity level.")),
		mcp.WithString("clean_label", mcp.Description("Transform value that marks baseline rows.")),
		mcp.WithNumber("decay_overall", mcp.Description("Decay rate for Overall weights, in (0, 1].")),
		mcp.WithNumber("decay_degradation", mcp.Description("Decay rate for Degradation weights, in (0, 1].")),
		mcp.WithBoolean("skip_invalid", mcp.Description("Skip groups with missing or duplicate baselines instead of failing.")),
		mcp.WithString("sort_by", mcp.Description("Rank transform rows by the Degradation mean of this metric.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of transform rows returned.")),
		mcp.WithString("level", mcp.Description("Tables to return."), mcp.Enum("transform", "group", "both")),
	}
}

// NewMCPServer initializes and configures the robustscore MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Robustscore Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: calculate_robustness ---
	fileOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Score a per-sample metrics CSV file: Overall and Degradation per transform and group."),
		mcp.WithString("input_path", mcp.Description("Path to the metrics CSV file."), mcp.Required()),
	}, scoringArgs()...)
	s.AddTool(mcp.NewTool("calculate_robustness", fileOpts...), h.handleCalculateRobustness)

	// --- 2. Tool: calculate_robustness_csv ---
	inlineOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Score metrics passed inline as CSV text with a header row."),
		mcp.WithString("csv_data", mcp.Description("CSV text including the header row."), mcp.Required()),
	}, scoringArgs()...)
	s.AddTool(mcp.NewTool("calculate_robustness_csv", inlineOpts...), h.handleCalculateRobustnessCSV)

	// --- 3. Tool: describe_formulas ---
	s.AddTool(mcp.NewTool("describe_formulas",
		mcp.WithDescription("Describe both robustness scores and list the weight of every severity level."),
		mcp.WithNumber("decay_overall", mcp.Description("Decay rate for Overall weights, in (0, 1].")),
		mcp.WithNumber("decay_degradation", mcp.Description("Decay rate for Degradation weights, in (0, 1].")),
		mcp.WithNumber("max_severity", mcp.Description("Highest severity to list weights for.")),
	), h.handleDescribeFormulas)

	return s
}

// StartMCPServer starts the robustscore MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
