package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakhill/coppice/internal/cli/ui"
	"github.com/oakhill/coppice/internal/core/worktree"
)

var worktreeCmd = &cobra.Command{
	Use:     "worktree",
	Aliases: []string{"wt"},
	Short:   "Manage disposable worktree checkouts",
}

var listJSON bool

var worktreeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed worktrees",
	RunE:  runWorktreeList,
}

func init() {
	worktreeListCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	worktreeCmd.AddCommand(worktreeListCmd)
	worktreeCmd.AddCommand(worktreeCreateCmd)
	worktreeCmd.AddCommand(worktreeShowCmd)
	worktreeCmd.AddCommand(worktreeRemoveCmd)
	worktreeCmd.AddCommand(worktreeLockCmd)
	worktreeCmd.AddCommand(worktreeUnlockCmd)
	worktreeCmd.AddCommand(worktreePruneCmd)
	worktreeCmd.AddCommand(worktreeRepairCmd)
}

func runWorktreeList(cmd *cobra.Command, args []string) error {
	_, manager, err := createManager()
	if err != nil {
		return err
	}

	records, err := manager.ManagedRecords(cmd.Context())
	if err != nil {
		return err
	}

	if listJSON {
		payloads := make([]map[string]any, 0, len(records))
		for _, record := range records {
			payloads = append(payloads, record.Payload())
		}
		out, err := json.MarshalIndent(payloads, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(records) == 0 {
		ui.Info("No managed worktrees")
		return nil
	}

	tbl := ui.NewTable("RUN", "TASK", "BRANCH", "AGE", "STATE", "PATH")
	for _, record := range records {
		tbl.AddRow(
			orDash(record.RunID()),
			orDash(record.Task()),
			orDash(record.Info.BranchShort()),
			recordAge(record),
			recordState(record),
			record.Info.Path,
		)
	}
	tbl.Print()
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func recordAge(record worktree.Record) string {
	if record.Meta == nil || record.Meta.CreatedAt.IsZero() {
		return "-"
	}
	return ui.FormatDuration(time.Since(record.Meta.CreatedAt))
}

func recordState(record worktree.Record) string {
	switch {
	case record.Info.Prunable:
		return "prunable"
	case record.Info.Locked:
		return "locked"
	case record.Info.Detached:
		return "detached"
	default:
		return "active"
	}
}
