package worktree

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetadataFileName is the sidecar file written into each managed worktree.
const MetadataFileName = ".coppice-worktree.json"

// Metadata records tool-specific attributes of a worktree. It is written
// once at creation time and never rewritten; lock state lives in git's
// administrative files, not here.
type Metadata struct {
	RunID      string    `json:"run_id"`
	Task       string    `json:"task"`
	Base       string    `json:"base"`
	Branch     *string   `json:"branch"`
	ShortSHA   string    `json:"short_sha"`
	CreatedAt  time.Time `json:"created_at"`
	Detach     bool      `json:"detach"`
	NoCheckout bool      `json:"no_checkout"`
}

// MetadataPath returns the sidecar path for a worktree directory.
func MetadataPath(worktreePath string) string {
	return filepath.Join(worktreePath, MetadataFileName)
}

// LoadMetadata reads the sidecar for a worktree. A missing file is not an
// error: worktrees created by other tools simply have no metadata.
func LoadMetadata(worktreePath string) (*Metadata, error) {
	content, err := os.ReadFile(MetadataPath(worktreePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read worktree metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(content, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse worktree metadata: %w", err)
	}
	return &meta, nil
}

// WriteMetadata writes the sidecar, creating the worktree directory if it
// does not exist yet.
func WriteMetadata(worktreePath string, meta *Metadata) error {
	if err := os.MkdirAll(worktreePath, 0o755); err != nil {
		return fmt.Errorf("failed to create worktree directory: %w", err)
	}

	content, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal worktree metadata: %w", err)
	}

	if err := os.WriteFile(MetadataPath(worktreePath), content, 0o644); err != nil {
		return fmt.Errorf("failed to write worktree metadata: %w", err)
	}
	return nil
}

func removeMetadata(worktreePath string) {
	// Best effort: a missing or undeletable sidecar never blocks removal.
	_ = os.Remove(MetadataPath(worktreePath))
}
