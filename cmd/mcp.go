package cmd

import (
	"fmt"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/internal/iocache"
	"github.com/huangsam/robustscore/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpSetup loads defaults for the MCP server. Every tool call carries its
// own input path and metrics, so neither is required here.
func mcpSetup(_ *cobra.Command, args []string) error {
	if err := loadRawInput(args); err != nil {
		return err
	}
	if err := contract.ProcessServerConfig(cfg, input); err != nil {
		return err
	}
	// stdio carries the protocol, so logs must stay on stderr and uncolored
	cfg.UseColors = false
	applyPresentation()
	if err := iocache.InitCaching(cfg.CacheBackend, cfg.CacheDBConnect, cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Start the robustscore MCP server",
	Long:    `Launch an MCP server over stdio that lets AI agents score metric tables and read the formulas.`,
	PreRunE: mcpSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
