package config

// Config represents the main coppice configuration.
type Config struct {
	Version   string          `yaml:"version"`
	Project   ProjectConfig   `yaml:"project"`
	Worktrees WorktreesConfig `yaml:"worktrees"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// ProjectConfig represents project-specific configuration.
type ProjectConfig struct {
	Name string `yaml:"name"`
}

// WorktreesConfig controls the worktree lifecycle manager.
type WorktreesConfig struct {
	// Dir is the managed root for worktree checkouts, relative to the
	// project root unless absolute.
	Dir string `yaml:"dir"`
	// Max is the concurrency ceiling: the number of managed worktrees that
	// may exist on disk at once.
	Max int `yaml:"max"`
	// PruneExpire is the default --expire spec passed to git worktree prune.
	PruneExpire string `yaml:"pruneExpire"`
}

// MCPConfig represents MCP server configuration.
type MCPConfig struct {
	Transport TransportConfig `yaml:"transport"`
}

// TransportConfig represents MCP transport configuration.
type TransportConfig struct {
	Type string `yaml:"type"`
}

// Defaults applied when a field is unset.
const (
	DefaultWorktreesDir = ".coppice/worktrees"
	DefaultMaxWorktrees = 8
	DefaultPruneExpire  = "3.days"
)

// DefaultConfig returns the default coppice configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Project: ProjectConfig{
			Name: "coppice-project",
		},
		Worktrees: WorktreesConfig{
			Dir:         DefaultWorktreesDir,
			Max:         DefaultMaxWorktrees,
			PruneExpire: DefaultPruneExpire,
		},
		MCP: MCPConfig{
			Transport: TransportConfig{
				Type: "stdio",
			},
		},
	}
}
