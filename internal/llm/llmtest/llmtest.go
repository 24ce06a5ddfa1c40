// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"salesagent/internal/llm"
)

// Reply is one scripted model answer. Err, when set, is returned instead.
type Reply struct {
	Message llm.Message
	Err     error
}

// Client answers Chat calls with its replies in order and records every
// request. It fails once the script runs out.
type Client struct {
	mu       sync.Mutex
	replies  []Reply
	requests []*llm.ChatRequest
}

func New(replies ...Reply) *Client {
	return &Client{replies: replies}
}

// Text is a plain assistant reply
func Text(s string) Reply {
	return Reply{Message: llm.Message{Role: llm.RoleAssistant, Content: s}}
}

// Calls is an assistant reply requesting the given tool calls. Each call is
// a name followed by its JSON arguments.
func Calls(nameArgs ...string) Reply {
	msg := llm.Message{Role: llm.RoleAssistant}
	for i := 0; i+1 < len(nameArgs); i += 2 {
		msg.ToolCalls = append(msg.ToolCalls, &llm.ToolCall{
			ID:   fmt.Sprintf("call_%d", i/2),
			Type: "function",
			Function: &llm.FunctionCall{
				Name:      nameArgs[i],
				Arguments: nameArgs[i+1],
			},
		})
	}
	return Reply{Message: msg}
}

// Fail is a reply that errors
func Fail(err error) Reply {
	return Reply{Err: err}
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	c.requests = append(c.requests, &cp)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.replies) == 0 {
		return nil, fmt.Errorf("llmtest: no reply scripted for request %d", len(c.requests))
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	if r.Err != nil {
		return nil, r.Err
	}

	stop := llm.StopReasonStop
	if len(r.Message.ToolCalls) > 0 {
		stop = llm.StopReasonToolCalls
	}
	return &llm.ChatResponse{Message: r.Message, StopReason: stop}, nil
}

func (c *Client) Provider() string { return "llmtest" }
func (c *Client) Model() string    { return "scripted" }

// Requests returns every request received so far
func (c *Client) Requests() []*llm.ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*llm.ChatRequest(nil), c.requests...)
}

// LastPrompt returns the content of the final message of the latest request
func (c *Client) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return ""
	}
	msgs := c.requests[len(c.requests)-1].Messages
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}
