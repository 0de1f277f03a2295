package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakhill/coppice/internal/cli/ui"
	"github.com/oakhill/coppice/internal/core/worktree"
)

var (
	createTask       string
	createBase       string
	createDetach     bool
	createNoCheckout bool
	createLockReason string
	createAutoLock   bool
)

var worktreeCreateCmd = &cobra.Command{
	Use:   "create <run-id>",
	Short: "Create an isolated worktree for a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorktreeCreate,
}

func init() {
	worktreeCreateCmd.Flags().StringVarP(&createTask, "task", "t", "", "Task slug (required)")
	worktreeCreateCmd.Flags().StringVarP(&createBase, "base", "b", "", "Base ref or commit-ish (default: repository default branch)")
	worktreeCreateCmd.Flags().BoolVar(&createDetach, "detach", false, "Create a detached checkout")
	worktreeCreateCmd.Flags().BoolVar(&createNoCheckout, "no-checkout", false, "Register the worktree without populating it")
	worktreeCreateCmd.Flags().StringVar(&createLockReason, "lock-reason", "", "Lock the new worktree with this reason")
	worktreeCreateCmd.Flags().BoolVar(&createAutoLock, "lock", false, "Lock the new worktree immediately")
	_ = worktreeCreateCmd.MarkFlagRequired("task")
}

func runWorktreeCreate(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	base := createBase
	if base == "" {
		base, err = manager.DefaultBase(cmd.Context())
		if err != nil {
			return err
		}
	}

	record, err := manager.Create(cmd.Context(), worktree.CreateOptions{
		RunID:      args[0],
		Task:       createTask,
		Base:       base,
		Detach:     createDetach,
		NoCheckout: createNoCheckout,
		LockReason: createLockReason,
		AutoLock:   createAutoLock,
	})
	if err != nil {
		return fmt.Errorf("failed to create worktree: %w", err)
	}

	ui.Success("Worktree created")
	ui.PrintKeyValue("Run", args[0])
	ui.PrintKeyValue("Path", record.Info.Path)
	if branch := record.Info.BranchShort(); branch != "" {
		ui.PrintKeyValue("Branch", branch)
	}
	if record.Meta != nil {
		ui.PrintKeyValue("Base", fmt.Sprintf("%s (%s)", record.Meta.Base, record.Meta.ShortSHA))
	}
	if record.Info.Locked {
		ui.PrintKeyValue("Locked", record.Info.LockReason)
	}
	return nil
}
