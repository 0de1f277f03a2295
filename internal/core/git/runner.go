// Package git invokes the git binary and parses its machine-readable output.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner executes git commands against a single repository.
type Runner struct {
	repoRoot string
}

// NewRunner creates a runner bound to the repository at repoRoot.
func NewRunner(repoRoot string) *Runner {
	return &Runner{repoRoot: repoRoot}
}

// RepoRoot returns the repository root the runner is bound to.
func (r *Runner) RepoRoot() string {
	return r.repoRoot
}

// RunOptions controls a single git invocation.
type RunOptions struct {
	Args []string
	// Dir overrides the working directory; empty means the repository root.
	Dir string
	// Env entries are merged over the process environment.
	Env map[string]string
	// Check turns a non-zero exit into a *CommandError.
	Check bool
	// Timeout bounds the subprocess; zero means no extra bound beyond ctx.
	Timeout time.Duration
}

// Result holds the captured output of a git invocation. Both streams are kept
// as raw bytes: git can emit arbitrary path bytes that are not valid UTF-8.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandError is returned when a checked git invocation exits non-zero.
type CommandError struct {
	Argv   []string
	Result *Result
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(LossyString(e.Result.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(LossyString(e.Result.Stdout))
	}
	if msg == "" {
		return fmt.Sprintf("git %s exited with code %d", strings.Join(e.Argv, " "), e.Result.ExitCode)
	}
	return fmt.Sprintf("git %s exited with code %d: %s", strings.Join(e.Argv, " "), e.Result.ExitCode, msg)
}

// LossyString decodes git output bytes, replacing invalid UTF-8 sequences
// instead of propagating them into log lines and error messages.
func LossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// Run executes `git <args>` and captures both output streams.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", opts.Args...)
	cmd.Dir = opts.Dir
	if cmd.Dir == "" {
		cmd.Dir = r.repoRoot
	}
	if len(opts.Env) > 0 {
		env := os.Environ()
		for k, v := range opts.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, fmt.Errorf("git %s: %w", strings.Join(opts.Args, " "), ctxErr)
			}
			return result, fmt.Errorf("failed to run git %s: %w", strings.Join(opts.Args, " "), err)
		}
		result.ExitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("git %s: %w", strings.Join(opts.Args, " "), ctxErr)
		}
	}

	if opts.Check && result.ExitCode != 0 {
		return result, &CommandError{Argv: opts.Args, Result: result}
	}

	return result, nil
}
