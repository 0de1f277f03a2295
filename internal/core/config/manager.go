// Package config provides configuration management for coppice projects.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// CoppiceDir is the directory name for coppice metadata.
	CoppiceDir = ".coppice"
	// ConfigFile is the filename for the coppice configuration.
	ConfigFile = "config.yaml"
)

// Manager handles coppice configuration.
type Manager struct {
	projectRoot string
	configPath  string
}

// NewManager creates a new configuration manager.
func NewManager(projectRoot string) *Manager {
	return &Manager{
		projectRoot: projectRoot,
		configPath:  filepath.Join(projectRoot, CoppiceDir, ConfigFile),
	}
}

// Load reads the configuration from disk.
func (m *Manager) Load() (*Config, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("coppice not initialized. Run 'coppice init' first")
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// Save writes the configuration to disk.
func (m *Manager) Save(config *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// IsInitialized checks if coppice has been initialized in the project.
func (m *Manager) IsInitialized() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}

// GetProjectRoot returns the project root directory.
func (m *Manager) GetProjectRoot() string {
	return m.projectRoot
}

// GetCoppiceDir returns the .coppice directory path.
func (m *Manager) GetCoppiceDir() string {
	return filepath.Join(m.projectRoot, CoppiceDir)
}

// WorktreesDir resolves the managed worktree root for a loaded config.
func (m *Manager) WorktreesDir(config *Config) string {
	dir := config.Worktrees.Dir
	if dir == "" {
		dir = DefaultWorktreesDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.projectRoot, dir)
}

// FindProjectRoot searches for the project root by looking for .coppice.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, CoppiceDir)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a coppice project (no %s directory found)", CoppiceDir)
		}
		dir = parent
	}
}

// applyDefaults applies default values to the configuration.
func applyDefaults(cfg *Config) {
	if cfg.Worktrees.Dir == "" {
		cfg.Worktrees.Dir = DefaultWorktreesDir
	}
	if cfg.Worktrees.Max <= 0 {
		cfg.Worktrees.Max = DefaultMaxWorktrees
	}
	if cfg.Worktrees.PruneExpire == "" {
		cfg.Worktrees.PruneExpire = DefaultPruneExpire
	}
	if cfg.MCP.Transport.Type == "" {
		cfg.MCP.Transport.Type = "stdio"
	}
}
