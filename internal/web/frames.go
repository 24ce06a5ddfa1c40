package web

import (
	"fmt"

	"salesagent/internal/conversation"
)

// Frame types sent to the browser
const (
	TypeHello    = "hello"
	TypeHistory  = "history"
	TypeUser     = "user"
	TypeText     = "text"
	TypeStatus   = "status"
	TypeComplete = "complete"
	TypeWarning  = "warning"
	TypeError    = "error"
	TypeBusy     = "busy"
	TypeReset    = "reset"
)

// Frame types sent by the browser
const (
	TypeSubmit = "submit"
)

const (
	ThinkingStatus  = "Agent is thinking..."
	ToolDoneStatus  = "✅ Tool execution complete."
	QuotaWarning    = "⚠️ **API Quota Exceeded (Error 429)**"
	agentErrorLabel = "❌ **Agent Error:** "
)

// Frame is one websocket message in either direction
type Frame struct {
	Type    string              `json:"type"`
	Client  string              `json:"client,omitempty"`
	Content string              `json:"content,omitempty"`
	Text    string              `json:"text,omitempty"`
	Label   string              `json:"label,omitempty"`
	Turns   []conversation.Turn `json:"turns,omitempty"`
}

func toolCallStatus(name string) string {
	return fmt.Sprintf("🛠️ Calling Tool: `%s`", name)
}
