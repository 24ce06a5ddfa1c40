package conversation

import (
	"strings"

	"salesagent/internal/agent"
)

const (
	// Marker trails the buffer while a reply is still streaming
	Marker = "▌"
	// CompleteLabel is shown on the status channel once a turn ends
	CompleteLabel = "Response complete!"
)

type NoticeKind int

const (
	NoticeToolCall NoticeKind = iota
	NoticeToolResult
)

// Notice is one status line about tool activity. It never touches the
// reply text.
type Notice struct {
	Kind NoticeKind
	Name string
	Args map[string]any
}

// Display renders one turn as it streams
type Display interface {
	// Text is called for every text fragment with the fragment and the
	// whole reply so far
	Text(delta, buffer string)
	Notice(n Notice)
	// Complete is called once with the committed reply. err is the
	// failure that replaced the reply with an advisory, if any.
	Complete(content string, err error)
}

type SinkState int

const (
	Idle SinkState = iota
	Streaming
	Complete
)

func (s SinkState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Sink accumulates the events of one turn and drives a Display.
// Idle -> Streaming on the first event, -> Complete on Finish.
type Sink struct {
	display Display
	state   SinkState
	buf     strings.Builder
	notices []Notice
}

// NewSink returns a sink for a single turn. A nil display discards output.
func NewSink(d Display) *Sink {
	if d == nil {
		d = Discard
	}
	return &Sink{display: d}
}

func (s *Sink) State() SinkState  { return s.state }
func (s *Sink) Buffer() string    { return s.buf.String() }
func (s *Sink) Notices() []Notice { return append([]Notice(nil), s.notices...) }

// Handle applies one event. Events after Finish are ignored.
func (s *Sink) Handle(ev agent.Event) {
	if s.state == Complete {
		return
	}
	s.state = Streaming

	switch e := ev.(type) {
	case agent.TextDelta:
		s.buf.WriteString(e.Text)
		s.display.Text(e.Text, s.buf.String())
	case agent.ToolCall:
		s.notice(Notice{Kind: NoticeToolCall, Name: e.Name, Args: e.Args})
	case agent.ToolResult:
		s.notice(Notice{Kind: NoticeToolResult, Name: e.Name})
	}
}

func (s *Sink) notice(n Notice) {
	s.notices = append(s.notices, n)
	s.display.Notice(n)
}

// Finish ends the turn and returns the assistant turn to commit. A non-nil
// err discards the partial reply in favour of the matching advisory.
func (s *Sink) Finish(err error) Turn {
	content := s.buf.String()
	if err != nil {
		content = agent.Advisory(err)
	}
	s.state = Complete
	s.display.Complete(content, err)
	return Turn{Role: RoleAssistant, Content: content}
}

// Replay runs a captured event sequence through a fresh sink
func Replay(events []agent.Event) (string, []Notice) {
	s := NewSink(nil)
	for _, ev := range events {
		s.Handle(ev)
	}
	return s.Buffer(), s.Notices()
}

type discard struct{}

func (discard) Text(string, string)    {}
func (discard) Notice(Notice)          {}
func (discard) Complete(string, error) {}

// Discard is a Display that renders nothing
var Discard Display = discard{}
