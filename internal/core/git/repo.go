package git

import (
	"context"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// IsRepository reports whether the runner's root is a git repository.
func (r *Runner) IsRepository() bool {
	_, err := gogit.PlainOpen(r.repoRoot)
	return err == nil
}

// DefaultBranch returns the repository's default branch, preferring the
// remote HEAD and falling back to main/master.
func (r *Runner) DefaultBranch(ctx context.Context) (string, error) {
	result, err := r.Run(ctx, RunOptions{Args: []string{"symbolic-ref", "refs/remotes/origin/HEAD"}})
	if err == nil && result.ExitCode == 0 {
		branch := strings.TrimPrefix(strings.TrimSpace(LossyString(result.Stdout)), "refs/remotes/origin/")
		if branch != "" {
			return branch, nil
		}
	}

	for _, branch := range []string{"main", "master"} {
		result, err := r.Run(ctx, RunOptions{Args: []string{"rev-parse", "--verify", "--quiet", branch}})
		if err == nil && result.ExitCode == 0 {
			return branch, nil
		}
	}

	return "main", nil
}

// RevParseShort resolves ref to its abbreviated commit SHA.
func (r *Runner) RevParseShort(ctx context.Context, ref string) (string, error) {
	result, err := r.Run(ctx, RunOptions{
		Args:  []string{"rev-parse", "--short", ref},
		Check: true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(LossyString(result.Stdout)), nil
}

// LocalBranchExists reports whether refs/heads/<branch> exists.
func (r *Runner) LocalBranchExists(ctx context.Context, branch string) (bool, error) {
	result, err := r.Run(ctx, RunOptions{
		Args: []string{"show-ref", "--verify", "--quiet", "refs/heads/" + branch},
	})
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

// StatusPorcelain returns the `git status --porcelain` entries for dir,
// one line per changed or untracked path.
func (r *Runner) StatusPorcelain(ctx context.Context, dir string) ([]string, error) {
	result, err := r.Run(ctx, RunOptions{
		Args:  []string{"status", "--porcelain"},
		Dir:   dir,
		Check: true,
	})
	if err != nil {
		return nil, err
	}

	var entries []string
	for _, line := range strings.Split(LossyString(result.Stdout), "\n") {
		if strings.TrimSpace(line) != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// ListWorktrees returns the parsed `git worktree list --porcelain -z` output.
func (r *Runner) ListWorktrees(ctx context.Context) ([]WorktreeListing, error) {
	result, err := r.Run(ctx, RunOptions{
		Args:  []string{"worktree", "list", "--porcelain", "-z"},
		Check: true,
	})
	if err != nil {
		return nil, err
	}
	return ParsePorcelainZ(result.Stdout), nil
}
