// Package commands provides CLI command implementations for coppice.
package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coppice",
	Short: "Disposable git worktrees for agent runs",
	Long: `Coppice provisions isolated, disposable git worktree checkouts so that
concurrent agent runs never clobber each other's working-tree state. Worktrees
are created under a managed root with a concurrency ceiling, locked while in
use, and pruned or repaired when git's administrative state drifts.`,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(worktreeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
