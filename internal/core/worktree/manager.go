package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/attribute"

	"github.com/oakhill/coppice/internal/core/config"
	"github.com/oakhill/coppice/internal/core/events"
	"github.com/oakhill/coppice/internal/core/git"
	"github.com/oakhill/coppice/internal/core/logger"
	"github.com/oakhill/coppice/internal/core/metrics"
)

const createLockFileName = ".create.lock"

// Manager orchestrates worktree lifecycle operations. All operations run on
// the caller's goroutine and block for the duration of the underlying git
// invocations; the manager spawns no workers of its own.
type Manager struct {
	git         *git.Runner
	root        string
	maxActive   int
	pruneExpire string
	log         logger.Logger
	bus         *events.Bus
	recorder    *metrics.Recorder
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithBus sets the event bus lifecycle events are published to.
func WithBus(bus *events.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// NewManager creates a worktree manager from a loaded project configuration.
func NewManager(configManager *config.Manager, cfg *config.Config, opts ...Option) (*Manager, error) {
	runner := git.NewRunner(configManager.GetProjectRoot())
	if !runner.IsRepository() {
		return nil, fmt.Errorf("not a git repository: %s", configManager.GetProjectRoot())
	}

	root, err := filepath.Abs(configManager.WorktreesDir(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve worktree root: %w", err)
	}

	m := &Manager{
		git:         runner,
		root:        root,
		maxActive:   cfg.Worktrees.Max,
		pruneExpire: cfg.Worktrees.PruneExpire,
		log:         logger.Nop(),
		bus:         events.NewBus(),
		recorder:    metrics.NewRecorder(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Root returns the managed worktree root directory.
func (m *Manager) Root() string {
	return m.root
}

// Bus returns the event bus lifecycle events are published to.
func (m *Manager) Bus() *events.Bus {
	return m.bus
}

// DefaultBase returns the repository's default branch, used when a caller
// does not name a base.
func (m *Manager) DefaultBase(ctx context.Context) (string, error) {
	return m.git.DefaultBranch(ctx)
}

// ListRecords lists every worktree git knows about, each joined with its
// sidecar metadata. Metadata failures are non-fatal: the record is returned
// with nil metadata.
func (m *Manager) ListRecords(ctx context.Context) ([]Record, error) {
	listings, err := m.git.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(listings))
	for _, listing := range listings {
		record := Record{Info: Info{WorktreeListing: listing}}
		meta, err := LoadMetadata(listing.Path)
		if err != nil {
			m.log.Warn("unreadable worktree metadata", "path", listing.Path, "error", err)
		} else {
			record.Meta = meta
		}
		records = append(records, record)
	}
	return records, nil
}

// ManagedRecords filters ListRecords to worktrees under the managed root.
func (m *Manager) ManagedRecords(ctx context.Context) ([]Record, error) {
	records, err := m.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	var managed []Record
	for _, record := range records {
		if m.isManagedPath(record.Info.Path) {
			managed = append(managed, record)
		}
	}
	return managed, nil
}

// CreateOptions describes a worktree to create.
type CreateOptions struct {
	RunID      string
	Task       string
	Base       string
	Detach     bool
	NoCheckout bool
	LockReason string
	AutoLock   bool
}

// Create provisions a new worktree for a run. The concurrency ceiling and
// collision checks plus the git mutation run under a file lock on the managed
// root, so concurrent creates on this host cannot exceed the ceiling.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*Record, error) {
	if opts.RunID == "" || opts.Task == "" {
		return nil, fmt.Errorf("run id and task are required")
	}
	if opts.Detach && IsProtectedBase(opts.Base) {
		return nil, &ForbiddenError{
			Reason: fmt.Sprintf("refusing detached worktree of protected base %q", opts.Base),
		}
	}

	started := time.Now()

	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create worktree root: %w", err)
	}
	lock := flock.New(filepath.Join(m.root, createLockFileName))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire create lock: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	active, err := m.countActive(ctx)
	if err != nil {
		return nil, err
	}
	if active >= m.maxActive {
		return nil, &LimitError{Limit: m.maxActive, Active: active}
	}

	shortSHA, err := m.git.RevParseShort(ctx, opts.Base)
	if err != nil {
		return nil, err
	}
	if shortSHA == "" {
		return nil, fmt.Errorf("could not resolve base %q", opts.Base)
	}

	path, err := m.managedPath(DirectoryName(opts.RunID, opts.Task, shortSHA))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		return nil, &ConflictError{Resource: "worktree directory", Name: path}
	}

	var branch string
	if !opts.Detach {
		branch = BranchName(opts.RunID, opts.Task)
		if IsProtectedBase(branch) {
			return nil, &ForbiddenError{Reason: fmt.Sprintf("branch %q is protected", branch)}
		}
		exists, err := m.git.LocalBranchExists(ctx, branch)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, &ConflictError{Resource: "branch", Name: branch}
		}
		if taken, where := m.branchCheckedOut(ctx, branch); taken {
			return nil, &ConflictError{Resource: "branch", Name: branch + " (checked out at " + where + ")"}
		}
	}

	args := []string{"worktree", "add"}
	if opts.Detach {
		args = append(args, "--detach")
	}
	if opts.NoCheckout {
		args = append(args, "--no-checkout")
	}
	if branch != "" {
		args = append(args, "-b", branch)
	}
	args = append(args, path, opts.Base)

	if _, err := m.git.Run(ctx, git.RunOptions{Args: args, Check: true}); err != nil {
		return nil, err
	}

	meta := &Metadata{
		RunID:      opts.RunID,
		Task:       opts.Task,
		Base:       opts.Base,
		ShortSHA:   shortSHA,
		CreatedAt:  time.Now().UTC(),
		Detach:     opts.Detach,
		NoCheckout: opts.NoCheckout,
	}
	if branch != "" {
		meta.Branch = &branch
	}
	if err := WriteMetadata(path, meta); err != nil {
		return nil, err
	}

	record, err := m.recordByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	m.publish(events.WorktreeCreate, *record)
	m.log.Info("worktree created",
		"run_id", opts.RunID, "task", opts.Task, "path", path, "branch", branch, "base", opts.Base)

	if opts.AutoLock || opts.LockReason != "" {
		reason := opts.LockReason
		if reason == "" {
			reason = "run " + opts.RunID
		}
		record, err = m.lockPath(ctx, path, reason)
		if err != nil {
			return nil, err
		}
	}

	m.recorder.RecordCreate(ctx, time.Since(started),
		attribute.Bool("detached", opts.Detach),
		attribute.Bool("locked", record.Info.Locked),
		attribute.String("branch", record.Info.BranchShort()),
	)
	m.recorder.AddActive(ctx, 1)

	return record, nil
}

// Remove deletes a managed worktree. Non-forced removal requires a clean
// working tree; forced removal additionally requires the process-wide env
// gate. The worktree's branch is never deleted, matching git's own
// `worktree remove` semantics.
func (m *Manager) Remove(ctx context.Context, runID string, force bool) error {
	record, err := m.Resolve(ctx, runID)
	if err != nil {
		return err
	}

	if force && !forceRemovalAllowed() {
		return &ForbiddenError{
			Reason: fmt.Sprintf("forced removal is disabled; set %s=1 to allow it", EnvAllowForceRemove),
		}
	}

	started := time.Now()
	path := record.Info.Path

	if !force {
		entries, err := m.git.StatusPorcelain(ctx, path)
		if err != nil {
			return err
		}
		dirty := entries[:0]
		for _, entry := range entries {
			// The sidecar file is our own; an untracked entry for it is benign.
			// Only an exact path match qualifies: a file that merely ends in
			// the sidecar name is real dirt.
			if statusEntryPath(entry) == MetadataFileName {
				continue
			}
			dirty = append(dirty, entry)
		}
		if len(dirty) > 0 {
			return &DirtyError{Path: path, Entries: dirty}
		}
	}

	removeMetadata(path)

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if _, err := m.git.Run(ctx, git.RunOptions{Args: args, Check: true}); err != nil {
		return err
	}

	m.publish(events.WorktreeRemove, *record)
	m.log.Info("worktree removed", "run_id", runID, "path", path, "force", force)
	m.recorder.RecordRemove(ctx, time.Since(started), attribute.Bool("force", force))
	m.recorder.AddActive(ctx, -1)

	// Removal can leave stale administrative entries behind; clean them up
	// opportunistically.
	if _, err := m.Prune(ctx, ""); err != nil {
		m.log.Warn("post-removal prune failed", "error", err)
	}

	return nil
}

// Lock locks the worktree for runID against git-level pruning.
func (m *Manager) Lock(ctx context.Context, runID, reason string) (*Record, error) {
	record, err := m.Resolve(ctx, runID)
	if err != nil {
		return nil, err
	}
	return m.lockPath(ctx, record.Info.Path, reason)
}

// Unlock releases the git-level lock on the worktree for runID.
func (m *Manager) Unlock(ctx context.Context, runID string) (*Record, error) {
	record, err := m.Resolve(ctx, runID)
	if err != nil {
		return nil, err
	}

	path := record.Info.Path
	if _, err := m.git.Run(ctx, git.RunOptions{
		Args:  []string{"worktree", "unlock", path},
		Check: true,
	}); err != nil {
		return nil, err
	}

	updated, err := m.recordByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	m.publish(events.WorktreeUnlock, *updated)
	m.log.Info("worktree unlocked", "run_id", runID, "path", path)
	return updated, nil
}

// PruneResult summarizes a prune pass over git's administrative state.
type PruneResult struct {
	Before  int `json:"before"`
	After   int `json:"after"`
	Removed int `json:"removed"`
}

// Prune asks git to drop administrative entries for worktrees whose
// directories are gone. An empty expire uses the configured default.
func (m *Manager) Prune(ctx context.Context, expire string) (*PruneResult, error) {
	before, err := m.ManagedRecords(ctx)
	if err != nil {
		return nil, err
	}

	if expire == "" {
		expire = m.pruneExpire
	}
	if _, err := m.git.Run(ctx, git.RunOptions{
		Args:  []string{"worktree", "prune", "--expire=" + expire},
		Check: true,
	}); err != nil {
		return nil, err
	}

	after, err := m.ManagedRecords(ctx)
	if err != nil {
		return nil, err
	}

	result := &PruneResult{
		Before:  len(before),
		After:   len(after),
		Removed: len(before) - len(after),
	}
	if m.bus != nil {
		m.bus.Publish(events.Event{
			Name: events.WorktreePrune,
			Payload: map[string]any{
				"before":  result.Before,
				"after":   result.After,
				"removed": result.Removed,
				"expire":  expire,
			},
			Timestamp: time.Now(),
		})
	}
	if result.Removed != 0 {
		m.recorder.AddActive(ctx, int64(-result.Removed))
		m.log.Info("worktrees pruned", "removed", result.Removed, "expire", expire)
	}
	return result, nil
}

// Repair fixes worktree administrative links after a directory was moved
// manually.
func (m *Manager) Repair(ctx context.Context) error {
	if _, err := m.git.Run(ctx, git.RunOptions{
		Args:  []string{"worktree", "repair"},
		Check: true,
	}); err != nil {
		return err
	}

	if m.bus != nil {
		m.bus.Publish(events.Event{
			Name:      events.WorktreeRepair,
			Payload:   map[string]any{},
			Timestamp: time.Now(),
		})
	}
	m.log.Info("worktree administrative state repaired")
	return nil
}

// Resolve finds a managed worktree by run id: by metadata, by the branch
// naming convention, by exact directory name, then by sanitized directory
// prefix.
func (m *Manager) Resolve(ctx context.Context, runID string) (*Record, error) {
	records, err := m.ManagedRecords(ctx)
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record.Meta != nil && record.Meta.RunID == runID {
			return &record, nil
		}
	}
	for _, record := range records {
		if record.Info.RunID() == runID {
			return &record, nil
		}
	}
	for _, record := range records {
		if filepath.Base(record.Info.Path) == runID {
			return &record, nil
		}
	}
	prefix := dirPrefix + SanitizeSegment(runID) + "-"
	for _, record := range records {
		if strings.HasPrefix(filepath.Base(record.Info.Path), prefix) {
			return &record, nil
		}
	}

	return nil, &NotFoundError{RunID: runID}
}

func (m *Manager) lockPath(ctx context.Context, path, reason string) (*Record, error) {
	args := []string{"worktree", "lock"}
	if reason != "" {
		args = append(args, "--reason", reason)
	}
	args = append(args, path)
	if _, err := m.git.Run(ctx, git.RunOptions{Args: args, Check: true}); err != nil {
		return nil, err
	}

	record, err := m.recordByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	m.publish(events.WorktreeLock, *record)
	m.log.Info("worktree locked", "path", path, "reason", reason)
	return record, nil
}

func (m *Manager) recordByPath(ctx context.Context, path string) (*Record, error) {
	records, err := m.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if samePath(record.Info.Path, path) {
			return &record, nil
		}
	}
	return nil, fmt.Errorf("worktree at %s missing from git listing", path)
}

func (m *Manager) countActive(ctx context.Context) (int, error) {
	records, err := m.ManagedRecords(ctx)
	if err != nil {
		return 0, err
	}
	active := 0
	for _, record := range records {
		if _, err := os.Stat(record.Info.Path); err == nil {
			active++
		}
	}
	return active, nil
}

func (m *Manager) branchCheckedOut(ctx context.Context, branch string) (bool, string) {
	records, err := m.ManagedRecords(ctx)
	if err != nil {
		return false, ""
	}
	for _, record := range records {
		if record.Info.BranchShort() == branch {
			return true, record.Info.Path
		}
	}
	return false, ""
}

// managedPath joins name onto the managed root and rejects any result that
// escapes it. The check runs before any git call.
func (m *Manager) managedPath(name string) (string, error) {
	path, err := filepath.Abs(filepath.Join(m.root, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve worktree path: %w", err)
	}
	if !strings.HasPrefix(path, m.root+string(os.PathSeparator)) {
		return "", &ForbiddenError{Reason: fmt.Sprintf("path %q escapes the managed root", path)}
	}
	return path, nil
}

func (m *Manager) isManagedPath(path string) bool {
	resolved := resolvePath(path)
	root := resolvePath(m.root)
	return strings.HasPrefix(resolved, root+string(os.PathSeparator))
}

func (m *Manager) publish(name string, record Record) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{
		Name:      name,
		Payload:   record.Payload(),
		Timestamp: time.Now(),
	})
}

// statusEntryPath extracts the path from a `git status --porcelain` entry:
// two status columns, a space, then the path. Renames report the destination.
func statusEntryPath(entry string) string {
	if len(entry) < 4 {
		return ""
	}
	path := entry[3:]
	if _, to, found := strings.Cut(path, " -> "); found {
		path = to
	}
	return path
}

func samePath(a, b string) bool {
	return resolvePath(a) == resolvePath(b)
}

// resolvePath normalizes a path for comparison, following symlinks where the
// path exists (macOS reports /var for worktrees created under /private/var).
func resolvePath(path string) string {
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	if resolvedDir, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		return filepath.Join(resolvedDir, filepath.Base(path))
	}
	return path
}
