package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakhill/coppice/internal/cli/ui"
)

var pruneExpire string

var worktreePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop stale worktree administrative entries",
	RunE:  runWorktreePrune,
}

var worktreeRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair worktree administrative links after manual moves",
	RunE:  runWorktreeRepair,
}

func init() {
	worktreePruneCmd.Flags().StringVar(&pruneExpire, "expire", "", "Only prune entries older than this (git approxidate, e.g. 1.day)")
}

func runWorktreePrune(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	result, err := manager.Prune(cmd.Context(), pruneExpire)
	if err != nil {
		return fmt.Errorf("failed to prune worktrees: %w", err)
	}

	if result.Removed == 0 {
		ui.Info("Nothing to prune (%d managed worktrees)", result.After)
		return nil
	}
	ui.Success("Pruned %d worktree entries (%d remaining)", result.Removed, result.After)
	return nil
}

func runWorktreeRepair(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	if err := manager.Repair(cmd.Context()); err != nil {
		return fmt.Errorf("failed to repair worktrees: %w", err)
	}

	ui.Success("Worktree administrative state repaired")
	return nil
}
