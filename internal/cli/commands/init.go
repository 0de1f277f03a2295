package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oakhill/coppice/internal/cli/ui"
	"github.com/oakhill/coppice/internal/core/config"
	"github.com/oakhill/coppice/internal/core/git"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize coppice in the current repository",
	RunE:  runInit,
}

var forceInit bool

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	if !git.NewRunner(cwd).IsRepository() {
		return fmt.Errorf("not a git repository. Coppice requires a git repository")
	}

	configManager := config.NewManager(cwd)
	if configManager.IsInitialized() {
		if !forceInit {
			return fmt.Errorf("coppice already initialized. Use --force to reinitialize")
		}
		ui.Warning("Reinitializing: existing configuration will be overwritten")
	}

	cfg := config.DefaultConfig()
	cfg.Project.Name = filepath.Base(cwd)
	if err := configManager.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	ui.Success("Initialized coppice in %s", cwd)
	ui.PrintKeyValue("Config", filepath.Join(config.CoppiceDir, config.ConfigFile))
	ui.PrintKeyValue("Worktree root", cfg.Worktrees.Dir)
	ui.PrintKeyValue("Max worktrees", fmt.Sprintf("%d", cfg.Worktrees.Max))
	return nil
}
