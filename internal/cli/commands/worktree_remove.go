package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakhill/coppice/internal/cli/ui"
	"github.com/oakhill/coppice/internal/core/worktree"
)

var removeForce bool

var worktreeRemoveCmd = &cobra.Command{
	Use:     "remove <run-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a managed worktree",
	Args:    cobra.ExactArgs(1),
	RunE:    runWorktreeRemove,
}

func init() {
	worktreeRemoveCmd.Flags().BoolVarP(&removeForce, "force", "f", false,
		fmt.Sprintf("Remove even with uncommitted changes (requires %s=1)", worktree.EnvAllowForceRemove))
}

func runWorktreeRemove(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	if err := manager.Remove(cmd.Context(), args[0], removeForce); err != nil {
		var dirty *worktree.DirtyError
		if errors.As(err, &dirty) {
			ui.Error("Worktree has uncommitted changes:")
			for _, entry := range dirty.Entries {
				ui.OutputLine("  %s", entry)
			}
			return fmt.Errorf("commit or discard changes, or use --force")
		}
		return fmt.Errorf("failed to remove worktree: %w", err)
	}

	ui.Success("Worktree for run %s removed", args[0])
	return nil
}
