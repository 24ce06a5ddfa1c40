package sales

import (
	"context"
	"encoding/json"
	"testing"

	"salesagent/internal/llm"
	"salesagent/internal/llm/llmtest"
	"salesagent/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tools(t *testing.T, client llm.Client) map[string]tool.Tool {
	t.Helper()
	out := map[string]tool.Tool{}
	for _, tl := range New(client, 0.2) {
		out[tl.Name()] = tl
	}
	require.Len(t, out, 3)
	return out
}

func TestAnalyzeLead(t *testing.T) {
	client := llmtest.New(llmtest.Text("  1. **Company Context:** fintech  "))
	tl := tools(t, client)["analyze_lead"]

	res, err := tl.Execute(context.Background(), json.RawMessage(`{
		"lead_name": "Ana Souza",
		"company_name": "Acme",
		"email": "ana@acme.io",
		"role": "CTO"
	}`))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "1. **Company Context:** fintech", res.Output)

	prompt := client.LastPrompt()
	assert.Contains(t, prompt, "- Name: Ana Souza")
	assert.Contains(t, prompt, "- Company: Acme")
	assert.Contains(t, prompt, "- Email: ana@acme.io")
	assert.Contains(t, prompt, "- Role: CTO")
	assert.Contains(t, prompt, "**The Hook (CRITICAL):**")
	assert.Equal(t, float32(0.2), client.Requests()[0].Temperature)
}

func TestAnalyzeLead_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		params string
		want   string
	}{
		{"company", `{"lead_name": "Ana", "email": "ana@acme.io", "role": "CTO"}`, "company_name is required"},
		{"email", `{"lead_name": "Ana", "company_name": "Acme", "role": "CTO"}`, "email is required"},
		{"role", `{"lead_name": "Ana", "company_name": "Acme", "email": "ana@acme.io"}`, "role is required"},
		{"blank role", `{"lead_name": "Ana", "company_name": "Acme", "email": "ana@acme.io", "role": "  "}`, "role is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llmtest.New()
			res, err := tools(t, client)["analyze_lead"].Execute(context.Background(), json.RawMessage(tt.params))
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
			assert.Empty(t, client.Requests())
		})
	}
}

func TestAnalyzeLead_SchemaMatchesValidation(t *testing.T) {
	tl := tools(t, llmtest.New())["analyze_lead"]
	required := tl.Parameters()["required"].([]string)

	for _, name := range required {
		params := map[string]string{"lead_name": "Ana", "company_name": "Acme", "email": "ana@acme.io", "role": "CTO"}
		delete(params, name)
		raw, err := json.Marshal(params)
		require.NoError(t, err)

		res, err := tl.Execute(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, name+" is required", res.Error)
	}
}

func TestRefineLeadSummary(t *testing.T) {
	client := llmtest.New(llmtest.Text("refined"))
	res, err := tools(t, client)["refine_lead_summary"].Execute(context.Background(),
		json.RawMessage(`{"current_summary": "old brief", "focus_area": "security"}`))
	require.NoError(t, err)
	assert.Equal(t, "refined", res.Output)

	prompt := client.LastPrompt()
	assert.Contains(t, prompt, "Shift focus toward: security")
	assert.Contains(t, prompt, "Sales Brief:\nold brief")
	assert.Contains(t, prompt, "Keep EXACTLY 5 bullet points")
}

func TestGenerateOutreachContent_DefaultSender(t *testing.T) {
	client := llmtest.New(llmtest.Text("Subject: hi"))
	res, err := tools(t, client)["generate_outreach_content"].Execute(context.Background(),
		json.RawMessage(`{"sales_brief": "brief", "content_type": "Cold Email"}`))
	require.NoError(t, err)
	assert.True(t, res.Success)

	prompt := client.LastPrompt()
	assert.Contains(t, prompt, "Create a draft for a Cold Email")
	assert.Contains(t, prompt, "SENDER NAME: "+DefaultSenderName)
	assert.Contains(t, prompt, "max 150 words")
}

func TestGenerateOutreachContent_ModelError(t *testing.T) {
	client := llmtest.New(llmtest.Fail(llm.ErrRateLimited))
	_, err := tools(t, client)["generate_outreach_content"].Execute(context.Background(),
		json.RawMessage(`{"sales_brief": "b", "content_type": "LinkedIn", "sender_name": "Rui"}`))
	assert.ErrorIs(t, err, llm.ErrRateLimited)
	assert.Contains(t, client.LastPrompt(), "SENDER NAME: Rui")
}

func TestInvalidParameters(t *testing.T) {
	res, err := tools(t, llmtest.New())["refine_lead_summary"].Execute(context.Background(),
		json.RawMessage(`not json`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid parameters")
}

func TestRegistryBestPractices(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(New(llmtest.New(), 0)...))

	bp := r.GetToolBestPractices()
	assert.Contains(t, bp, "**analyze_lead**")
	assert.Contains(t, bp, "**generate_outreach_content**")

	defs := r.GetToolDefinitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "analyze_lead", defs[0].Function.Name)
	assert.Equal(t, []string{"lead_name", "company_name", "email", "role"}, defs[0].Function.Parameters["required"])
}
