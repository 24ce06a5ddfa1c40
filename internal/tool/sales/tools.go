// Package sales holds the lead research, refinement and outreach drafting
// tools. Each one fills a prompt template and asks the model for a reply.
package sales

import (
	"context"
	"encoding/json"
	"strings"

	"salesagent/internal/llm"
	"salesagent/internal/tool"
)

// DefaultSenderName is used when no sender is given for outreach drafts
const DefaultSenderName = "Sales Representative"

// New returns the three sales tools backed by client
func New(client llm.Client, temperature float32) []tool.Tool {
	b := base{client: client, temperature: temperature}
	return []tool.Tool{
		&AnalyzeLead{base: b},
		&RefineLeadSummary{base: b},
		&GenerateOutreachContent{base: b},
	}
}

type base struct {
	client      llm.Client
	temperature float32
}

func (b base) complete(ctx context.Context, prompt string) (*tool.Result, error) {
	text, err := llm.Complete(ctx, b.client, prompt, b.temperature)
	if err != nil {
		return nil, err
	}
	return &tool.Result{Success: true, Output: text}, nil
}

type field struct {
	name  string
	value *string
}

// decode unmarshals params and reports the first missing required field
func decode(params json.RawMessage, dst any, required ...field) *tool.Result {
	if err := json.Unmarshal(params, dst); err != nil {
		return tool.Failure("invalid parameters: %v", err)
	}
	for _, f := range required {
		if strings.TrimSpace(*f.value) == "" {
			return tool.Failure("%s is required", f.name)
		}
	}
	return nil
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

type analyzeLeadInput struct {
	LeadName    string `json:"lead_name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

// AnalyzeLead researches a lead's company and writes a five-point Sales Brief
type AnalyzeLead struct{ base }

func (t *AnalyzeLead) Name() string { return "analyze_lead" }

func (t *AnalyzeLead) Description() string {
	return "Researches real public information about the company and generates a Sales Brief with 5 key points."
}

func (t *AnalyzeLead) BestPractices() string {
	return `**analyze_lead**: always the first step. Call it as soon as the user names a lead or company; never invent lead data.`
}

func (t *AnalyzeLead) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lead_name":    stringProp("Full name of the lead"),
			"company_name": stringProp("Company the lead works for"),
			"email":        stringProp("Lead's email address"),
			"role":         stringProp("Lead's job title or role"),
		},
		"required": []string{"lead_name", "company_name", "email", "role"},
	}
}

func (t *AnalyzeLead) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	var in analyzeLeadInput
	if res := decode(params, &in,
		field{"lead_name", &in.LeadName},
		field{"company_name", &in.CompanyName},
		field{"email", &in.Email},
		field{"role", &in.Role},
	); res != nil {
		return res, nil
	}
	return t.complete(ctx, analyzeLeadPrompt(in))
}

type refineSummaryInput struct {
	CurrentSummary string `json:"current_summary"`
	FocusArea      string `json:"focus_area"`
}

// RefineLeadSummary reshapes an existing brief toward a new focus
type RefineLeadSummary struct{ base }

func (t *RefineLeadSummary) Name() string { return "refine_lead_summary" }

func (t *RefineLeadSummary) Description() string {
	return "Refines the Sales Brief maintaining the 5 points but adjusting the requested focus."
}

func (t *RefineLeadSummary) BestPractices() string {
	return `**refine_lead_summary**: only when the user asks to change the research focus. Pass the full current brief.`
}

func (t *RefineLeadSummary) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"current_summary": stringProp("The Sales Brief to refine"),
			"focus_area":      stringProp("What the refined brief should focus on"),
		},
		"required": []string{"current_summary", "focus_area"},
	}
}

func (t *RefineLeadSummary) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	var in refineSummaryInput
	if res := decode(params, &in,
		field{"current_summary", &in.CurrentSummary},
		field{"focus_area", &in.FocusArea},
	); res != nil {
		return res, nil
	}
	return t.complete(ctx, refineSummaryPrompt(in))
}

type outreachInput struct {
	SalesBrief  string `json:"sales_brief"`
	ContentType string `json:"content_type"`
	SenderName  string `json:"sender_name"`
}

// GenerateOutreachContent drafts a cold email or LinkedIn message from a brief
type GenerateOutreachContent struct{ base }

func (t *GenerateOutreachContent) Name() string { return "generate_outreach_content" }

func (t *GenerateOutreachContent) Description() string {
	return "Generates a Cold Outreach Email or LinkedIn Post based strictly on the provided Sales Brief."
}

func (t *GenerateOutreachContent) BestPractices() string {
	return `**generate_outreach_content**: the final step. Requires the brief from analyze_lead or refine_lead_summary.`
}

func (t *GenerateOutreachContent) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sales_brief":  stringProp("The Sales Brief the draft must be based on"),
			"content_type": stringProp("Kind of draft, e.g. Cold Email or LinkedIn Message"),
			"sender_name":  stringProp("Name to sign the draft with (default: Sales Representative)"),
		},
		"required": []string{"sales_brief", "content_type"},
	}
}

func (t *GenerateOutreachContent) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	var in outreachInput
	if res := decode(params, &in,
		field{"sales_brief", &in.SalesBrief},
		field{"content_type", &in.ContentType},
	); res != nil {
		return res, nil
	}
	if strings.TrimSpace(in.SenderName) == "" {
		in.SenderName = DefaultSenderName
	}
	return t.complete(ctx, outreachPrompt(in))
}
