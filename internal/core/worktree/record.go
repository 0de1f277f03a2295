package worktree

import (
	"strings"

	"github.com/oakhill/coppice/internal/core/git"
)

// Info is a single worktree as reported by git, with derived naming-convention
// fields. It is rebuilt from a fresh listing on every call and never cached.
type Info struct {
	git.WorktreeListing
}

// BranchShort returns the branch name with refs/heads/ stripped, or "" for a
// detached worktree.
func (i Info) BranchShort() string {
	return strings.TrimPrefix(i.Branch, "refs/heads/")
}

// IsEphemeral reports whether the worktree's branch follows the wt/ naming
// convention that marks it as owned by this tool.
func (i Info) IsEphemeral() bool {
	return strings.HasPrefix(i.BranchShort(), BranchPrefix)
}

// RunID returns the run id segment of an ephemeral branch name, or "".
func (i Info) RunID() string {
	parts := strings.SplitN(i.BranchShort(), "/", 3)
	if len(parts) < 2 || parts[0]+"/" != BranchPrefix {
		return ""
	}
	return parts[1]
}

// TaskSlug returns the task segment of an ephemeral branch name, or "".
func (i Info) TaskSlug() string {
	parts := strings.SplitN(i.BranchShort(), "/", 3)
	if len(parts) < 3 || parts[0]+"/" != BranchPrefix {
		return ""
	}
	return parts[2]
}

// Record joins git's view of a worktree with the optional sidecar metadata.
// Meta is nil when the sidecar is absent or unreadable; callers fall back to
// the branch naming convention.
type Record struct {
	Info Info
	Meta *Metadata
}

// RunID returns the run id from metadata when present, else from the branch
// naming convention.
func (r Record) RunID() string {
	if r.Meta != nil && r.Meta.RunID != "" {
		return r.Meta.RunID
	}
	return r.Info.RunID()
}

// Task returns the task from metadata when present, else from the branch
// naming convention.
func (r Record) Task() string {
	if r.Meta != nil && r.Meta.Task != "" {
		return r.Meta.Task
	}
	return r.Info.TaskSlug()
}

// Payload renders the record as a JSON-serializable event payload. Fields are
// present only when known.
func (r Record) Payload() map[string]any {
	payload := map[string]any{
		"path":         r.Info.Path,
		"detached":     r.Info.Detached,
		"locked":       r.Info.Locked,
		"prunable":     r.Info.Prunable,
		"is_ephemeral": r.Info.IsEphemeral(),
	}
	if r.Info.Head != "" {
		payload["head"] = r.Info.Head
	}
	if short := r.Info.BranchShort(); short != "" {
		payload["branch"] = short
	}
	if r.Info.LockReason != "" {
		payload["lock_reason"] = r.Info.LockReason
	}
	if r.Info.PrunableReason != "" {
		payload["prunable_reason"] = r.Info.PrunableReason
	}
	if runID := r.RunID(); runID != "" {
		payload["run_id"] = runID
	}
	if task := r.Task(); task != "" {
		payload["task"] = task
	}
	if r.Meta != nil {
		payload["base"] = r.Meta.Base
		payload["short_sha"] = r.Meta.ShortSHA
		payload["created_at"] = r.Meta.CreatedAt
		payload["detach"] = r.Meta.Detach
		payload["no_checkout"] = r.Meta.NoCheckout
	}
	return payload
}
