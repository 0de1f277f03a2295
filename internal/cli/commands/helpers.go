package commands

import (
	"fmt"
	"os"

	"github.com/oakhill/coppice/internal/core/config"
	"github.com/oakhill/coppice/internal/core/logger"
	"github.com/oakhill/coppice/internal/core/worktree"
)

// createManager builds the worktree manager for the enclosing project.
func createManager() (*config.Manager, *worktree.Manager, error) {
	projectRoot, err := config.FindProjectRoot()
	if err != nil {
		return nil, nil, err
	}

	configManager := config.NewManager(projectRoot)
	cfg, err := configManager.Load()
	if err != nil {
		return nil, nil, err
	}

	manager, err := worktree.NewManager(configManager, cfg, worktree.WithLogger(cliLogger()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create worktree manager: %w", err)
	}

	return configManager, manager, nil
}

func cliLogger() logger.Logger {
	opts := []logger.Option{logger.WithOutput(os.Stderr)}
	if os.Getenv("COPPICE_DEBUG") != "" {
		opts = append(opts, logger.WithDebug())
	}
	return logger.New(opts...)
}
