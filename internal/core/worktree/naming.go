// Package worktree manages the lifecycle of disposable git worktrees used by
// agent runs: creation under a concurrency ceiling, locking, removal behind a
// branch-protection policy, and reconciliation of git's own administrative
// state.
package worktree

import "strings"

const (
	// BranchPrefix marks branches owned by this tool.
	BranchPrefix = "wt/"

	dirPrefix        = "wt-"
	maxSegmentLength = 48
	fallbackSegment  = "unnamed"
)

// protected base refs, after normalization
const protectedReleasePrefix = "release/"

// SanitizeSegment normalizes a caller-supplied identifier into a segment that
// is safe both as a ref component and as a directory name.
func SanitizeSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	lastDash := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > maxSegmentLength {
		out = strings.Trim(out[:maxSegmentLength], "-")
	}
	if out == "" {
		return fallbackSegment
	}
	return out
}

// DirectoryName derives the worktree directory name for a run. The short SHA
// disambiguates directories created against different bases for the same
// (run, task) pair.
func DirectoryName(runID, task, shortSHA string) string {
	return dirPrefix + SanitizeSegment(runID) + "-" + SanitizeSegment(task) + "-" + SanitizeSegment(shortSHA)
}

// BranchName derives the ephemeral branch name wt/<run>/<task>.
func BranchName(runID, task string) string {
	return BranchPrefix + SanitizeSegment(runID) + "/" + SanitizeSegment(task)
}

// IsProtectedBase reports whether ref names a protected branch. Protected
// refs can never be deleted and can never be the base of a detached worktree.
func IsProtectedBase(ref string) bool {
	name := normalizeRef(ref)
	return name == "main" || strings.HasPrefix(name, protectedReleasePrefix)
}

func normalizeRef(ref string) string {
	name := strings.TrimSpace(ref)
	name = strings.TrimPrefix(name, "refs/heads/")
	name = strings.TrimPrefix(name, "refs/remotes/")
	name = strings.TrimPrefix(name, "origin/")
	name = strings.TrimPrefix(name, "upstream/")
	return name
}
