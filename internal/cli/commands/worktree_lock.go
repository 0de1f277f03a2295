package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakhill/coppice/internal/cli/ui"
)

var lockReason string

var worktreeLockCmd = &cobra.Command{
	Use:   "lock <run-id>",
	Short: "Lock a worktree against git-level pruning",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorktreeLock,
}

var worktreeUnlockCmd = &cobra.Command{
	Use:   "unlock <run-id>",
	Short: "Release a worktree lock",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorktreeUnlock,
}

func init() {
	worktreeLockCmd.Flags().StringVarP(&lockReason, "reason", "r", "", "Reason recorded with the lock")
}

func runWorktreeLock(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	record, err := manager.Lock(cmd.Context(), args[0], lockReason)
	if err != nil {
		return fmt.Errorf("failed to lock worktree: %w", err)
	}

	ui.Success("Worktree locked")
	ui.PrintKeyValue("Path", record.Info.Path)
	if record.Info.LockReason != "" {
		ui.PrintKeyValue("Reason", record.Info.LockReason)
	}
	return nil
}

func runWorktreeUnlock(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	record, err := manager.Unlock(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to unlock worktree: %w", err)
	}

	ui.Success("Worktree unlocked")
	ui.PrintKeyValue("Path", record.Info.Path)
	return nil
}
