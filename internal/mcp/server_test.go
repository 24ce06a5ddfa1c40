package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"salesagent/internal/llm/llmtest"
	"salesagent/internal/tool"
	"salesagent/internal/tool/sales"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, client *llmtest.Client) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(sales.New(client, 0)...))
	srv := NewServer(reg, tool.NewExecutor(reg, nil), nil)

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverT)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestServer_ListTools(t *testing.T) {
	cs := connect(t, llmtest.New())

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tl := range res.Tools {
		names = append(names, tl.Name)
	}
	assert.Equal(t, []string{"analyze_lead", "generate_outreach_content", "refine_lead_summary"}, names)

	schema, err := json.Marshal(res.Tools[0].InputSchema)
	require.NoError(t, err)
	assert.Contains(t, string(schema), `"company_name"`)
}

func TestServer_CallTool(t *testing.T) {
	client := llmtest.New(llmtest.Text("refined brief"))
	cs := connect(t, client)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "refine_lead_summary",
		Arguments: map[string]any{"current_summary": "brief", "focus_area": "cost"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "refined brief", resultText(t, res))
	assert.Contains(t, client.LastPrompt(), "Shift focus toward: cost")
}

func TestServer_CallToolFailure(t *testing.T) {
	cs := connect(t, llmtest.New())

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "generate_outreach_content",
		Arguments: map[string]any{"content_type": "Cold Email"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: sales_brief is required", resultText(t, res))
}

// resultText returns the single text block of a tool result
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestToCallToolResult(t *testing.T) {
	ok := toCallToolResult(&tool.Result{Success: true, Output: "brief"})
	assert.False(t, ok.IsError)
	assert.Equal(t, "brief", resultText(t, ok))

	failed := toCallToolResult(&tool.Result{Error: "lead_name is required"})
	assert.True(t, failed.IsError)
	assert.Equal(t, "Error: lead_name is required", resultText(t, failed))
}
