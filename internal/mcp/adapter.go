package mcp

import (
	"salesagent/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// toMCPTool describes t for tools/list
func toMCPTool(t tool.Tool) *mcp.Tool {
	schema := t.Parameters()
	if schema == nil {
		schema = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	return &mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: schema,
	}
}

// toCallToolResult converts a tool result, reporting failures as tool
// errors rather than protocol errors
func toCallToolResult(r *tool.Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: r.Text()}},
		IsError: !r.Success,
	}
}
