package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oakhill/coppice/internal/core/worktree"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("worktree_create",
		mcp.WithDescription("Create an isolated git worktree for an agent run"),
		mcp.WithString("run_id",
			mcp.Description("Run identifier"),
			mcp.Required(),
		),
		mcp.WithString("task",
			mcp.Description("Task slug"),
			mcp.Required(),
		),
		mcp.WithString("base",
			mcp.Description("Base ref or commit-ish"),
		),
		mcp.WithBoolean("detach",
			mcp.Description("Create a detached checkout (disallowed for protected bases)"),
		),
		mcp.WithBoolean("no_checkout",
			mcp.Description("Register the worktree without populating it"),
		),
		mcp.WithString("lock_reason",
			mcp.Description("Lock the new worktree with this reason"),
		),
	), s.handleWorktreeCreate)

	s.mcpServer.AddTool(mcp.NewTool("worktree_list",
		mcp.WithDescription("List managed worktrees with metadata"),
	), s.handleWorktreeList)

	s.mcpServer.AddTool(mcp.NewTool("worktree_remove",
		mcp.WithDescription("Remove a managed worktree (the branch is kept)"),
		mcp.WithString("run_id",
			mcp.Description("Run identifier"),
			mcp.Required(),
		),
		mcp.WithBoolean("force",
			mcp.Description("Remove even with uncommitted changes; requires the force-removal env gate"),
		),
	), s.handleWorktreeRemove)

	s.mcpServer.AddTool(mcp.NewTool("worktree_lock",
		mcp.WithDescription("Lock a worktree against git-level pruning"),
		mcp.WithString("run_id",
			mcp.Description("Run identifier"),
			mcp.Required(),
		),
		mcp.WithString("reason",
			mcp.Description("Reason recorded with the lock"),
		),
	), s.handleWorktreeLock)

	s.mcpServer.AddTool(mcp.NewTool("worktree_unlock",
		mcp.WithDescription("Release a worktree lock"),
		mcp.WithString("run_id",
			mcp.Description("Run identifier"),
			mcp.Required(),
		),
	), s.handleWorktreeUnlock)

	s.mcpServer.AddTool(mcp.NewTool("worktree_prune",
		mcp.WithDescription("Drop stale worktree administrative entries"),
		mcp.WithString("expire",
			mcp.Description("Only prune entries older than this (git approxidate)"),
		),
	), s.handleWorktreePrune)

	s.mcpServer.AddTool(mcp.NewTool("worktree_repair",
		mcp.WithDescription("Repair worktree administrative links after manual moves"),
	), s.handleWorktreeRepair)
}

func (s *Server) handleWorktreeCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	runID := stringArg(args, "run_id")
	task := stringArg(args, "task")
	if runID == "" || task == "" {
		return nil, fmt.Errorf("run_id and task are required")
	}

	base := stringArg(args, "base")
	if base == "" {
		var err error
		base, err = s.manager.DefaultBase(ctx)
		if err != nil {
			return nil, err
		}
	}

	record, err := s.manager.Create(ctx, worktree.CreateOptions{
		RunID:      runID,
		Task:       task,
		Base:       base,
		Detach:     boolArg(args, "detach"),
		NoCheckout: boolArg(args, "no_checkout"),
		LockReason: stringArg(args, "lock_reason"),
	})
	if err != nil {
		return nil, err
	}
	return textResult(record.Payload())
}

func (s *Server) handleWorktreeList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.manager.ManagedRecords(ctx)
	if err != nil {
		return nil, err
	}

	payloads := make([]map[string]any, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, record.Payload())
	}
	return textResult(payloads)
}

func (s *Server) handleWorktreeRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	runID := stringArg(args, "run_id")
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}

	if err := s.manager.Remove(ctx, runID, boolArg(args, "force")); err != nil {
		return nil, err
	}
	return textResult(map[string]any{"removed": runID})
}

func (s *Server) handleWorktreeLock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	runID := stringArg(args, "run_id")
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}

	record, err := s.manager.Lock(ctx, runID, stringArg(args, "reason"))
	if err != nil {
		return nil, err
	}
	return textResult(record.Payload())
}

func (s *Server) handleWorktreeUnlock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	runID := stringArg(args, "run_id")
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}

	record, err := s.manager.Unlock(ctx, runID)
	if err != nil {
		return nil, err
	}
	return textResult(record.Payload())
}

func (s *Server) handleWorktreePrune(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.manager.Prune(ctx, stringArg(request.GetArguments(), "expire"))
	if err != nil {
		return nil, err
	}
	return textResult(result)
}

func (s *Server) handleWorktreeRepair(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.manager.Repair(ctx); err != nil {
		return nil, err
	}
	return textResult(map[string]any{"repaired": true})
}
