package conversation

import (
	"errors"
	"testing"

	"salesagent/internal/agent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_InterleavedToolNotices(t *testing.T) {
	events := []agent.Event{
		agent.TextDelta{Text: "Hi "},
		agent.ToolCall{Name: "analyze_lead", Args: map[string]any{"company_name": "Acme"}},
		agent.TextDelta{Text: "there"},
		agent.ToolResult{},
	}

	rec := &recorder{}
	s := NewSink(rec)
	assert.Equal(t, Idle, s.State())

	for _, ev := range events {
		s.Handle(ev)
		assert.Equal(t, Streaming, s.State())
	}
	turn := s.Finish(nil)

	assert.Equal(t, Complete, s.State())
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "Hi there"}, turn)
	require.Len(t, rec.notices, 2)
	assert.Equal(t, NoticeToolCall, rec.notices[0].Kind)
	assert.Equal(t, "analyze_lead", rec.notices[0].Name)
	assert.Equal(t, NoticeToolResult, rec.notices[1].Kind)
	assert.Equal(t, rec.notices, s.Notices())
}

func TestReplay_IsRepeatable(t *testing.T) {
	events := []agent.Event{
		agent.TextDelta{Text: "a"},
		agent.Unrecognized{},
		agent.ToolCall{Name: "refine_lead_summary"},
		agent.TextDelta{Text: "b"},
		agent.ToolResult{Name: "refine_lead_summary"},
		agent.TextDelta{Text: "c"},
	}

	buf1, notices1 := Replay(events)
	buf2, notices2 := Replay(events)

	assert.Equal(t, "abc", buf1)
	assert.Equal(t, buf1, buf2)
	assert.Equal(t, notices1, notices2)
	assert.Len(t, notices1, 2)
}

func TestSink_FailureUsesAdvisory(t *testing.T) {
	rec := &recorder{}
	s := NewSink(rec)
	s.Handle(agent.TextDelta{Text: "half a brief"})

	turn := s.Finish(agent.QueryFailure("recv", errors.New("stream broke")))
	assert.Equal(t, agent.TransportAdvisory, turn.Content)
	assert.Equal(t, []string{agent.TransportAdvisory}, rec.completed)

	s.Handle(agent.TextDelta{Text: "ignored"})
	assert.Equal(t, "half a brief", s.Buffer())
}

func TestSink_EmptyReply(t *testing.T) {
	s := NewSink(nil)
	assert.Equal(t, Turn{Role: RoleAssistant}, s.Finish(nil))
	assert.Equal(t, "complete", s.State().String())
}
