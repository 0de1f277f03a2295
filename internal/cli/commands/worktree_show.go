package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var worktreeShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one managed worktree as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorktreeShow,
}

func runWorktreeShow(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	record, err := manager.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(record.Payload(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
