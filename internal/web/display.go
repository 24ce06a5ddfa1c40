package web

import (
	"context"
	"errors"

	"salesagent/internal/agent"
	"salesagent/internal/conversation"
)

// browserDisplay turns sink callbacks into frames. Send errors mean the
// page went away; the turn still completes and is recorded.
type browserDisplay struct {
	ctx     context.Context
	session *wsSession
	final   *Frame // sent once the turn is committed
}

func (d *browserDisplay) send(f Frame) {
	if err := d.session.send(d.ctx, f); err != nil {
		d.session.log.Debug("dropping %s frame: %v", f.Type, err)
	}
}

func (d *browserDisplay) Text(delta, buffer string) {
	d.send(Frame{Type: TypeText, Content: buffer + conversation.Marker})
}

func (d *browserDisplay) Notice(n conversation.Notice) {
	text := ToolDoneStatus
	if n.Kind == conversation.NoticeToolCall {
		text = toolCallStatus(n.Name)
	}
	d.send(Frame{Type: TypeStatus, Text: text})
}

func (d *browserDisplay) Complete(content string, err error) {
	label := conversation.CompleteLabel
	switch {
	case err == nil:
	case errors.Is(err, agent.ErrQuotaExceeded):
		d.send(Frame{Type: TypeWarning, Text: QuotaWarning})
		label = ""
	default:
		d.send(Frame{Type: TypeError, Text: agentErrorLabel + err.Error()})
		label = ""
	}
	d.final = &Frame{Type: TypeComplete, Content: content, Label: label}
}
