// Package mcp exposes a factsync client as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/factsync"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with factsync tools.
type Server struct {
	client    *factsync.Client
	mcpServer *server.MCPServer
	session   *RefSession
}

// ToolResult represents the result of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo represents a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

type toolHandler func(ctx context.Context, args map[string]any) (*ToolResult, error)

// NewServer creates a new MCP server with factsync tools registered.
func NewServer(client *factsync.Client) *Server {
	s := &Server{
		client:  client,
		session: NewRefSession(),
	}

	s.mcpServer = server.NewMCPServer(
		"factsync",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()

	return s
}

// Run serves MCP over stdin/stdout.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message and returns a response.
// This is primarily for testing the MCP protocol layer.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "facts_list", Description: "List cached facts, newest first"},
		{Name: "facts_fetch", Description: "Fetch the first page of the remote feed into the cache"},
		{Name: "facts_fetch_more", Description: "Fetch the next page of the remote feed into the cache"},
		{Name: "facts_create", Description: "Add one random fact to the top of the cache"},
		{Name: "facts_delete", Description: "Delete cached facts by session ref or id"},
		{Name: "facts_stats", Description: "Show cache statistics and pagination state"},
	}
}

// CallTool executes a tool by name with the given arguments.
// This is used for testing and direct invocation.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	h, ok := s.handlers()[name]
	if !ok {
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
	return h(ctx, args)
}

func (s *Server) handlers() map[string]toolHandler {
	return map[string]toolHandler{
		"facts_list":       s.handleList,
		"facts_fetch":      s.handleFetch,
		"facts_fetch_more": s.handleFetchMore,
		"facts_create":     s.handleCreate,
		"facts_delete":     s.handleDelete,
		"facts_stats":      s.handleStats,
	}
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("facts_list",
		mcp.WithDescription("List cached facts in feed order (newest first). Each fact gets a session ref (F1, F2, ...) usable with facts_delete."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of facts to return (default: 20)"),
		),
	), s.handleList)

	s.addTool(mcp.NewTool("facts_fetch",
		mcp.WithDescription("Fetch the first page of the remote fact feed and store it in the local cache. Restarts pagination."),
		mcp.WithNumber("page_size",
			mcp.Description("Facts per page (default: configured page size)"),
		),
	), s.handleFetch)

	s.addTool(mcp.NewTool("facts_fetch_more",
		mcp.WithDescription("Fetch the next page of the remote fact feed. Does nothing when no page has been fetched yet or the feed is exhausted."),
		mcp.WithNumber("page_size",
			mcp.Description("Facts per page (default: configured page size)"),
		),
	), s.handleFetchMore)

	s.addTool(mcp.NewTool("facts_create",
		mcp.WithDescription("Fetch one random fact and add it to the top of the cache."),
	), s.handleCreate)

	s.addTool(mcp.NewTool("facts_delete",
		mcp.WithDescription("Delete cached facts. Accepts session refs (F1, F2) from facts_list or full fact ids."),
		mcp.WithArray("ids",
			mcp.Description("Session refs or fact ids to delete"),
			mcp.WithStringItems(),
			mcp.Required(),
		),
	), s.handleDelete)

	s.addTool(mcp.NewTool("facts_stats",
		mcp.WithDescription("Show cache statistics: fact count, newest rank, pagination state."),
	), s.handleStats)
}

func (s *Server) addTool(tool mcp.Tool, h toolHandler) {
	s.mcpServer.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(result), nil
	})
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
		IsError: r.IsError,
	}
}

// Internal handlers

func (s *Server) handleList(ctx context.Context, args map[string]any) (*ToolResult, error) {
	limit, err := intArg(args, "limit")
	if err != nil {
		return errorResult(err), nil
	}

	facts, err := s.client.Facts(ctx, limit)
	if err != nil {
		return errorResult(fmt.Errorf("list failed: %w", err)), nil
	}
	if len(facts) == 0 {
		return &ToolResult{Content: "No facts cached. Use facts_fetch to load the feed."}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d cached facts (newest first):\n\n", len(facts))
	s.writeFacts(&sb, facts)
	return &ToolResult{Content: sb.String()}, nil
}

func (s *Server) handleFetch(ctx context.Context, args map[string]any) (*ToolResult, error) {
	pageSize, err := intArg(args, "page_size")
	if err != nil {
		return errorResult(err), nil
	}

	facts, err := s.client.FetchFirstPage(ctx, pageSize)
	if err != nil {
		return errorResult(fmt.Errorf("fetch failed: %w", err)), nil
	}
	return &ToolResult{Content: s.formatPage(facts)}, nil
}

func (s *Server) handleFetchMore(ctx context.Context, args map[string]any) (*ToolResult, error) {
	pageSize, err := intArg(args, "page_size")
	if err != nil {
		return errorResult(err), nil
	}

	if !s.client.HasMore() {
		state, _ := s.client.Cursor()
		if state == factsync.CursorNotStarted {
			return &ToolResult{Content: "Nothing fetched yet. Use facts_fetch first."}, nil
		}
		return &ToolResult{Content: "The feed is exhausted; no more pages."}, nil
	}

	facts, err := s.client.FetchNextPage(ctx, pageSize)
	if err != nil {
		return errorResult(fmt.Errorf("fetch more failed: %w", err)), nil
	}
	return &ToolResult{Content: s.formatPage(facts)}, nil
}

func (s *Server) handleCreate(ctx context.Context, args map[string]any) (*ToolResult, error) {
	fact, err := s.client.CreateOne(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("create failed: %w", err)), nil
	}

	ref := s.session.Track(fact.ID)
	return &ToolResult{Content: fmt.Sprintf("Created [%s] %s (rank %d):\n  %s", ref, fact.ID, fact.OrderingRank, fact.Text)}, nil
}

func (s *Server) handleDelete(ctx context.Context, args map[string]any) (*ToolResult, error) {
	refs := toStringSlice(args["ids"])
	if len(refs) == 0 {
		return &ToolResult{Content: "ids is required", IsError: true}, nil
	}

	ids := s.session.ResolveAll(refs)
	n, err := s.client.Delete(ctx, ids...)
	if err != nil {
		return errorResult(fmt.Errorf("delete failed: %w", err)), nil
	}
	s.session.Forget(ids...)

	return &ToolResult{Content: fmt.Sprintf("Deleted %d of %d requested facts.", n, len(ids))}, nil
}

func (s *Server) handleStats(ctx context.Context, args map[string]any) (*ToolResult, error) {
	stats, err := s.client.Stats(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("stats failed: %w", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("Cache statistics:\n")
	fmt.Fprintf(&sb, "  Facts: %d\n", stats.Store.FactCount)
	fmt.Fprintf(&sb, "  Newest rank: %d\n", stats.Store.NewestRank)
	fmt.Fprintf(&sb, "  Schema version: %s\n", stats.Store.SchemaVersion)
	fmt.Fprintf(&sb, "  Cursor: %s\n", stats.Cursor)
	fmt.Fprintf(&sb, "  Offline: %t\n", stats.Offline)
	return &ToolResult{Content: sb.String()}, nil
}

// Formatting

func (s *Server) formatPage(facts []factsync.Fact) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stored %d facts.", len(facts))
	if s.client.HasMore() {
		sb.WriteString(" More pages available (facts_fetch_more).")
	} else {
		sb.WriteString(" Feed exhausted.")
	}
	if len(facts) > 0 {
		sb.WriteString("\n\n")
		s.writeFacts(&sb, facts)
	}
	return sb.String()
}

func (s *Server) writeFacts(sb *strings.Builder, facts []factsync.Fact) {
	for _, f := range facts {
		ref := s.session.Track(f.ID)
		fmt.Fprintf(sb, "[%s] rank %d: %s\n", ref, f.OrderingRank, f.Text)
	}
}

func errorResult(err error) *ToolResult {
	msg := err.Error()
	if errors.Is(err, factsync.ErrOffline) {
		msg += " (configure FACTSYNC_BASE_URL to enable remote tools)"
	}
	return &ToolResult{Content: msg, IsError: true}
}

// intArg reads an optional non-negative integer argument. JSON numbers arrive as float64.
func intArg(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok {
		if i, isInt := v.(int); isInt {
			f = float64(i)
		} else {
			return 0, fmt.Errorf("%s must be a number", name)
		}
	}
	if f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return int(f), nil
}

// toStringSlice converts []any or []string to []string, dropping non-strings.
func toStringSlice(v any) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		result := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}
