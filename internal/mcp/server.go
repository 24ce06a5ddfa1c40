// Package mcp serves the registered sales tools over the Model Context
// Protocol so other agents can call them.
package mcp

import (
	"context"
	"fmt"

	"salesagent/internal/logger"
	"salesagent/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ServerName    = "salesagent"
	ServerVersion = "1.0.0"
)

// Server exposes every tool of a registry as an MCP tool
type Server struct {
	server   *mcp.Server
	executor *tool.Executor
	log      *logger.Logger
}

// NewServer registers the registry's tools on a new MCP server. Calls go
// through executor so they share its rate limit and logging.
func NewServer(registry *tool.Registry, executor *tool.Executor, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		server:   mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil),
		executor: executor,
		log:      log,
	}
	for _, t := range registry.List() {
		s.server.AddTool(toMCPTool(t), s.handler(t.Name()))
	}
	return s
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		call, err := s.executor.Run(ctx, name, req.Params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", name, err)
		}
		return toCallToolResult(call.Result), nil
	}
}

// Run serves on stdin/stdout until ctx ends or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("MCP server %s %s listening on stdio", ServerName, ServerVersion)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}
