package llm

import (
	"context"
	"fmt"
	"strings"
)

// Client is a chat-completion model backend
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Provider() string
	Model() string
}

type ChatRequest struct {
	Messages    []Message
	Tools       []*ToolDefinition
	Temperature float32
	MaxTokens   int
}

type ChatResponse struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

type ToolDefinition struct {
	Type     string
	Function *FunctionDef
}

type FunctionDef struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// Complete sends a single user prompt and returns the trimmed reply text
func Complete(ctx context.Context, c Client, prompt string, temperature float32) (string, error) {
	resp, err := c.Chat(ctx, &ChatRequest{
		Messages:    []Message{UserMessage(prompt)},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", c.Provider(), c.Model(), err)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// SplitSystem separates system messages from the conversation, for
// backends that take the system prompt out of band
func SplitSystem(msgs []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
