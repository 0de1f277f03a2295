// Package helpers provides shared test fixtures backed by real git
// repositories.
package helpers

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// CreateTestRepo creates a temporary git repository with one commit on main.
func CreateTestRepo(t *testing.T) string {
	t.Helper()

	// Clear git environment variables so tests are isolated from any
	// enclosing repository or template configuration.
	for _, v := range []string{"GIT_DIR", "GIT_WORK_TREE", "GIT_INDEX_FILE"} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	tmpDir, err := os.MkdirTemp(os.TempDir(), "coppice-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(tmpDir)
	})

	mustGit(t, tmpDir, "init", "--initial-branch=main")
	mustGit(t, tmpDir, "config", "user.email", "test@example.com")
	mustGit(t, tmpDir, "config", "user.name", "Test User")

	WriteFile(t, tmpDir, "README.md", "# Test Repository\n")
	mustGit(t, tmpDir, "add", "README.md")
	mustGit(t, tmpDir, "commit", "-m", "Initial commit")
	mustGit(t, tmpDir, "branch", "-M", "main")

	return tmpDir
}

// WriteFile writes content to a file under dir, creating parents as needed.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// Commit stages everything in dir and commits it.
func Commit(t *testing.T, dir, message string) {
	t.Helper()
	mustGit(t, dir, "add", "-A")
	mustGit(t, dir, "commit", "-m", message)
}

// CreateBranch creates a branch at the current HEAD of dir.
func CreateBranch(t *testing.T, dir, branch string) {
	t.Helper()
	mustGit(t, dir, "branch", branch)
}

// HeadShortSHA returns the abbreviated SHA of HEAD in dir.
func HeadShortSHA(t *testing.T, dir string) string {
	t.Helper()

	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("Failed to resolve HEAD: %v", err)
	}
	return string(out[:len(out)-1])
}

func mustGit(t *testing.T, dir string, args ...string) {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}
