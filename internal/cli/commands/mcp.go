package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakhill/coppice/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server exposing worktree tools",
	Long: `Starts an MCP (Model Context Protocol) server over stdio so that agent
hosts can create, lock, and remove worktrees through tool calls.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(manager)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.ServeStdio()
}
