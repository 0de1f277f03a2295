package worktree

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned when no managed worktree matches an identifier.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no managed worktree found for run %q", e.RunID)
}

// ConflictError is returned when the target directory or branch already
// exists.
type ConflictError struct {
	Resource string
	Name     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Name)
}

// DirtyError is returned when a non-forced removal is blocked by uncommitted
// changes in the worktree.
type DirtyError struct {
	Path    string
	Entries []string
}

func (e *DirtyError) Error() string {
	return fmt.Sprintf("worktree %s has uncommitted changes:\n%s", e.Path, strings.Join(e.Entries, "\n"))
}

// ForbiddenError is returned for policy violations: protected branches,
// disallowed forced removal, and similar.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

// LimitError is returned when the concurrency ceiling is reached. It is a
// policy error, so IsForbidden also matches it.
type LimitError struct {
	Limit  int
	Active int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("worktree limit reached: %d active of %d allowed", e.Active, e.Limit)
}

// IsForbidden reports whether err is a policy violation, including the
// concurrency limit.
func IsForbidden(err error) bool {
	var forbidden *ForbiddenError
	var limit *LimitError
	return errors.As(err, &forbidden) || errors.As(err, &limit)
}
