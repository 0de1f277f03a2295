package worktree_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhill/coppice/internal/core/config"
	"github.com/oakhill/coppice/internal/core/events"
	"github.com/oakhill/coppice/internal/core/git"
	"github.com/oakhill/coppice/internal/core/worktree"
	"github.com/oakhill/coppice/internal/tests/helpers"
)

func newTestManager(t *testing.T, maxActive int) (*worktree.Manager, string) {
	t.Helper()

	repoDir := helpers.CreateTestRepo(t)
	cfg := config.DefaultConfig()
	cfg.Worktrees.Max = maxActive
	mgr, err := worktree.NewManager(config.NewManager(repoDir), cfg)
	require.NoError(t, err)
	return mgr, repoDir
}

func TestManager_CreateProvisionsWorktree(t *testing.T) {
	mgr, repoDir := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{
		RunID: "run-42",
		Task:  "Fix Bug",
		Base:  "main",
	})
	require.NoError(t, err)

	assert.Equal(t, "run-42", record.RunID())
	assert.Equal(t, "wt/run-42/fix-bug", record.Info.BranchShort())
	assert.True(t, record.Info.IsEphemeral())
	require.NotNil(t, record.Meta)
	assert.Equal(t, "main", record.Meta.Base)

	sha := helpers.HeadShortSHA(t, repoDir)
	assert.Equal(t, "wt-run-42-fix-bug-"+sha, filepath.Base(record.Info.Path))

	// The checkout and its sidecar exist on disk.
	assert.DirExists(t, record.Info.Path)
	assert.FileExists(t, worktree.MetadataPath(record.Info.Path))

	managed, err := mgr.ManagedRecords(ctx)
	require.NoError(t, err)
	require.Len(t, managed, 1)
	assert.Equal(t, "run-42", managed[0].RunID())
}

func TestManager_CreateUnknownBaseFails(t *testing.T) {
	mgr, _ := newTestManager(t, 8)

	_, err := mgr.Create(context.Background(), worktree.CreateOptions{
		RunID: "run-1",
		Task:  "probe",
		Base:  "no-such-branch",
	})
	require.Error(t, err)
}

func TestManager_DefaultBase(t *testing.T) {
	mgr, _ := newTestManager(t, 8)

	base, err := mgr.DefaultBase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "main", base)
}

func TestManager_CreateDetachedFromFeatureBranch(t *testing.T) {
	mgr, repoDir := newTestManager(t, 8)
	ctx := context.Background()

	helpers.CreateBranch(t, repoDir, "topic")

	record, err := mgr.Create(ctx, worktree.CreateOptions{
		RunID:  "run-1",
		Task:   "probe",
		Base:   "topic",
		Detach: true,
	})
	require.NoError(t, err)
	assert.True(t, record.Info.Detached)
	assert.Empty(t, record.Info.BranchShort())
	require.NotNil(t, record.Meta)
	assert.Nil(t, record.Meta.Branch)
}

func TestManager_CreateDetachedFromProtectedBaseIsForbidden(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	for _, base := range []string{"main", "origin/main", "release/1.2"} {
		_, err := mgr.Create(ctx, worktree.CreateOptions{
			RunID:  "run-1",
			Task:   "probe",
			Base:   base,
			Detach: true,
		})
		require.Error(t, err, "base %s", base)
		assert.True(t, worktree.IsForbidden(err), "base %s", base)
	}
}

func TestManager_CreateEnforcesCeiling(t *testing.T) {
	mgr, _ := newTestManager(t, 1)
	ctx := context.Background()

	_, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-1", Task: "a", Base: "main"})
	require.NoError(t, err)

	_, err = mgr.Create(ctx, worktree.CreateOptions{RunID: "run-2", Task: "b", Base: "main"})
	require.Error(t, err)

	var limitErr *worktree.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 1, limitErr.Limit)
	assert.Equal(t, 1, limitErr.Active)
	assert.True(t, worktree.IsForbidden(err))
}

func TestManager_CreateDuplicateIsConflict(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	opts := worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"}
	_, err := mgr.Create(ctx, opts)
	require.NoError(t, err)

	_, err = mgr.Create(ctx, opts)
	var conflictErr *worktree.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestManager_CreateWithLock(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{
		RunID:      "run-42",
		Task:       "fix-bug",
		Base:       "main",
		LockReason: "long build",
	})
	require.NoError(t, err)
	assert.True(t, record.Info.Locked)
	assert.Equal(t, "long build", record.Info.LockReason)
}

func TestManager_RemoveCleanWorktree(t *testing.T) {
	mgr, repoDir := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)
	path := record.Info.Path

	require.NoError(t, mgr.Remove(ctx, "run-42", false))

	assert.NoDirExists(t, path)
	managed, err := mgr.ManagedRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, managed)

	// The run's branch survives removal.
	exists, err := git.NewRunner(repoDir).LocalBranchExists(ctx, "wt/run-42/fix-bug")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestManager_RemoveDirtyWorktreeIsRefused(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)
	helpers.WriteFile(t, record.Info.Path, "scratch.txt", "wip")

	err = mgr.Remove(ctx, "run-42", false)
	var dirtyErr *worktree.DirtyError
	require.ErrorAs(t, err, &dirtyErr)
	assert.Equal(t, record.Info.Path, dirtyErr.Path)
	assert.NotEmpty(t, dirtyErr.Entries)

	// The worktree is untouched after the refusal.
	assert.DirExists(t, record.Info.Path)
}

func TestManager_RemoveIgnoresSidecarInDirtyCheck(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	_, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)

	// The sidecar is always untracked; it alone never makes a worktree dirty.
	require.NoError(t, mgr.Remove(ctx, "run-42", false))
}

func TestManager_RemoveLookalikeSidecarNameIsDirt(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-1", Task: "notes", Base: "main"})
	require.NoError(t, err)

	// A file that merely ends in the sidecar name is not the sidecar.
	helpers.WriteFile(t, record.Info.Path, "notes.coppice-worktree.json", "{}\n")

	err = mgr.Remove(ctx, "run-1", false)
	var dirtyErr *worktree.DirtyError
	require.ErrorAs(t, err, &dirtyErr)

	// The refusal leaves the worktree and its real sidecar intact.
	assert.DirExists(t, record.Info.Path)
	assert.FileExists(t, worktree.MetadataPath(record.Info.Path))
}

func TestManager_RemoveModifiedTrackedLookalikeIsDirt(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-1", Task: "notes", Base: "main"})
	require.NoError(t, err)

	helpers.WriteFile(t, record.Info.Path, "notes.coppice-worktree.json", "{}\n")
	helpers.Commit(t, record.Info.Path, "Add notes")
	helpers.WriteFile(t, record.Info.Path, "notes.coppice-worktree.json", "{\"edited\":true}\n")

	err = mgr.Remove(ctx, "run-1", false)
	var dirtyErr *worktree.DirtyError
	require.ErrorAs(t, err, &dirtyErr)
	assert.FileExists(t, worktree.MetadataPath(record.Info.Path))
}

func TestManager_RemoveSidecarNameInSubdirectoryIsDirt(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-1", Task: "nested", Base: "main"})
	require.NoError(t, err)

	helpers.WriteFile(t, record.Info.Path, filepath.Join("sub", worktree.MetadataFileName), "{}\n")

	err = mgr.Remove(ctx, "run-1", false)
	var dirtyErr *worktree.DirtyError
	require.ErrorAs(t, err, &dirtyErr)
	assert.DirExists(t, record.Info.Path)
}

func TestManager_ForceRemoveRequiresEnvGate(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)
	helpers.WriteFile(t, record.Info.Path, "scratch.txt", "wip")

	err = mgr.Remove(ctx, "run-42", true)
	require.Error(t, err)
	assert.True(t, worktree.IsForbidden(err))
	assert.DirExists(t, record.Info.Path)

	t.Setenv(worktree.EnvAllowForceRemove, "1")
	require.NoError(t, mgr.Remove(ctx, "run-42", true))
	assert.NoDirExists(t, record.Info.Path)
}

func TestManager_ForceRemoveGateAcceptsCommonTruthyValues(t *testing.T) {
	for _, value := range []string{"true", "YES", "1"} {
		t.Run(value, func(t *testing.T) {
			mgr, _ := newTestManager(t, 8)
			ctx := context.Background()

			record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-1", Task: "a", Base: "main"})
			require.NoError(t, err)
			helpers.WriteFile(t, record.Info.Path, "scratch.txt", "wip")

			t.Setenv(worktree.EnvAllowForceRemove, value)
			require.NoError(t, mgr.Remove(ctx, "run-1", true))
		})
	}
}

func TestManager_RemoveUnknownRunID(t *testing.T) {
	mgr, _ := newTestManager(t, 8)

	err := mgr.Remove(context.Background(), "run-nope", false)
	var notFound *worktree.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "run-nope", notFound.RunID)
}

func TestManager_LockUnlockRoundtrip(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	_, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)

	locked, err := mgr.Lock(ctx, "run-42", "keep for review")
	require.NoError(t, err)
	assert.True(t, locked.Info.Locked)
	assert.Equal(t, "keep for review", locked.Info.LockReason)

	unlocked, err := mgr.Unlock(ctx, "run-42")
	require.NoError(t, err)
	assert.False(t, unlocked.Info.Locked)
	assert.Empty(t, unlocked.Info.LockReason)
}

func TestManager_PruneDropsStaleEntries(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)

	// Simulate an external deletion of the checkout directory.
	require.NoError(t, os.RemoveAll(record.Info.Path))

	result, err := mgr.Prune(ctx, "now")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Before)
	assert.Equal(t, 0, result.After)
	assert.Equal(t, 1, result.Removed)

	managed, err := mgr.ManagedRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, managed)
}

func TestManager_PruneNothingToDo(t *testing.T) {
	mgr, _ := newTestManager(t, 8)

	result, err := mgr.Prune(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)
}

func TestManager_Repair(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	_, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)
	require.NoError(t, mgr.Repair(ctx))
}

func TestManager_ResolveByDirectoryName(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	record, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)

	byDir, err := mgr.Resolve(ctx, filepath.Base(record.Info.Path))
	require.NoError(t, err)
	assert.Equal(t, record.Info.Path, byDir.Info.Path)

	byRun, err := mgr.Resolve(ctx, "run-42")
	require.NoError(t, err)
	assert.Equal(t, record.Info.Path, byRun.Info.Path)
}

func TestManager_ListRecordsIncludesMainWorktree(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	_, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)

	all, err := mgr.ListRecords(ctx)
	require.NoError(t, err)
	// The primary checkout plus the managed worktree.
	require.Len(t, all, 2)

	managed, err := mgr.ManagedRecords(ctx)
	require.NoError(t, err)
	require.Len(t, managed, 1)
}

func TestManager_LifecycleEventsReachSubscribers(t *testing.T) {
	mgr, _ := newTestManager(t, 8)
	ctx := context.Background()

	sub := mgr.Bus().Subscribe()
	defer mgr.Bus().Unsubscribe(sub)

	_, err := mgr.Create(ctx, worktree.CreateOptions{RunID: "run-42", Task: "fix-bug", Base: "main"})
	require.NoError(t, err)
	require.NoError(t, mgr.Remove(ctx, "run-42", false))

	var names []string
	for {
		select {
		case evt := <-sub.Events():
			names = append(names, evt.Name)
			if evt.Name == events.WorktreeCreate {
				assert.Equal(t, "run-42", evt.Payload["run_id"])
				assert.Equal(t, "wt/run-42/fix-bug", evt.Payload["branch"])
			}
			continue
		default:
		}
		break
	}

	assert.Contains(t, names, events.WorktreeCreate)
	assert.Contains(t, names, events.WorktreeRemove)
	assert.Contains(t, names, events.WorktreePrune)
}

func TestManager_NotARepository(t *testing.T) {
	dir := t.TempDir()
	_, err := worktree.NewManager(config.NewManager(dir), config.DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository")
}
