// Package vertex is the Vertex AI Gemini backend, authenticated with
// Application Default Credentials.
package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"salesagent/internal/llm"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

type Client struct {
	client *genai.Client
	model  string
}

var _ llm.Client = (*Client)(nil)

func NewClient(ctx context.Context, project, location, model string, opts ...option.ClientOption) (*Client, error) {
	c, err := genai.NewClient(ctx, project, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &Client{client: c, model: model}, nil
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	system, rest := llm.SplitSystem(req.Messages)
	contents, err := toContents(rest)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(req.Tools) > 0 {
		m.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(req.Tools)}}
	}

	last := contents[len(contents)-1]
	session := m.StartChat()
	session.History = contents[:len(contents)-1]

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, llm.WrapRateLimit(err)
	}
	return fromResponse(resp)
}

func (c *Client) Provider() string {
	return "vertex"
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Close() error {
	return c.client.Close()
}

// toContents maps messages to genai contents, merging consecutive turns of
// the same role so tool responses travel together
func toContents(msgs []llm.Message) ([]*genai.Content, error) {
	var out []*genai.Content
	add := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleUser:
			add("user", genai.Text(msg.Content))
		case llm.RoleAssistant:
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args := map[string]any{}
				if tc.Function.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
						return nil, fmt.Errorf("tool call %s: invalid arguments: %w", tc.Function.Name, err)
					}
				}
				parts = append(parts, genai.FunctionCall{Name: tc.Function.Name, Args: args})
			}
			add("model", parts...)
		case llm.RoleTool:
			add("user", genai.FunctionResponse{
				Name:     msg.Name,
				Response: map[string]any{"result": msg.Content},
			})
		}
	}
	return out, nil
}

func toDeclarations(tools []*llm.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  toSchema(t.Function.Parameters),
		})
	}
	return decls
}

// toSchema converts a JSON schema object into the SDK's schema type
func toSchema(js map[string]any) *genai.Schema {
	if js == nil {
		return nil
	}
	s := &genai.Schema{}
	if typ, ok := js["type"].(string); ok {
		s.Type = schemaType(typ)
	}
	if desc, ok := js["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := js["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}
	if items, ok := js["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}
	s.Required = stringList(js["required"])
	s.Enum = stringList(js["enum"])
	return s
}

func schemaType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func fromResponse(resp *genai.GenerateContentResponse) (*llm.ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	cand := resp.Candidates[0]

	result := &llm.ChatResponse{
		Message:    llm.Message{Role: llm.RoleAssistant},
		StopReason: llm.StopReasonStop,
	}
	if cand.FinishReason == genai.FinishReasonMaxTokens {
		result.StopReason = llm.StopReasonLength
	}
	if resp.UsageMetadata != nil {
		result.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if cand.Content == nil {
		return result, nil
	}

	var text strings.Builder
	for i, part := range cand.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			args, err := json.Marshal(p.Args)
			if err != nil {
				return nil, fmt.Errorf("encode args for %s: %w", p.Name, err)
			}
			result.Message.ToolCalls = append(result.Message.ToolCalls, &llm.ToolCall{
				ID:   fmt.Sprintf("call_%d_%s", i, p.Name),
				Type: "function",
				Function: &llm.FunctionCall{
					Name:      p.Name,
					Arguments: string(args),
				},
			})
		}
	}
	result.Message.Content = text.String()
	if len(result.Message.ToolCalls) > 0 {
		result.StopReason = llm.StopReasonToolCalls
	}
	return result, nil
}
