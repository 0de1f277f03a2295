// Package mcp exposes worktree lifecycle operations as MCP tools so agent
// hosts can provision and release checkouts through tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/oakhill/coppice/internal/core/events"
	"github.com/oakhill/coppice/internal/core/worktree"
)

// Server wraps the MCP server with the worktree manager.
type Server struct {
	mcpServer *server.MCPServer
	manager   *worktree.Manager
}

// NewServer creates an MCP server exposing the worktree tools.
func NewServer(manager *worktree.Manager) (*Server, error) {
	mcpServer := server.NewMCPServer(
		"coppice",
		"1.0.0",
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		manager:   manager,
	}
	s.registerTools()
	return s, nil
}

// eventNotificationMethod is the method name for forwarded lifecycle events.
const eventNotificationMethod = "notifications/worktree/event"

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
// Lifecycle events published while serving are forwarded to connected
// clients as notifications.
func (s *Server) ServeStdio() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.forwardEvents(ctx)
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) forwardEvents(ctx context.Context) {
	for evt := range s.manager.Bus().Stream(ctx) {
		s.mcpServer.SendNotificationToAllClients(eventNotificationMethod, eventNotificationParams(evt))
	}
}

func eventNotificationParams(evt events.Event) map[string]any {
	return map[string]any{
		"event":     evt.Name,
		"timestamp": evt.Timestamp.Format(time.RFC3339),
		"payload":   evt.Payload,
	}
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}
