package agent

// Event is the classified form of one envelope part: TextDelta, ToolCall,
// ToolResult or Unrecognized.
type Event interface {
	isEvent()
}

// TextDelta is a fragment of the assistant's reply
type TextDelta struct {
	Text string
}

// ToolCall notes that the agent invoked a tool
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult notes that a tool call finished
type ToolResult struct {
	Name string
}

// Unrecognized absorbs parts of any other shape
type Unrecognized struct{}

func (TextDelta) isEvent()    {}
func (ToolCall) isEvent()     {}
func (ToolResult) isEvent()   {}
func (Unrecognized) isEvent() {}

// Classify maps a part to its event. Text wins over a function call, which
// wins over a function response.
func Classify(p Part) Event {
	switch {
	case p.Text != nil:
		return TextDelta{Text: *p.Text}
	case p.FunctionCall != nil:
		return ToolCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args}
	case p.FunctionResponse != nil:
		return ToolResult{Name: p.FunctionResponse.Name}
	default:
		return Unrecognized{}
	}
}

// Events classifies every part of the envelope in order. Envelopes without
// content yield nothing.
func (e *Envelope) Events() []Event {
	if e == nil || e.Content == nil {
		return nil
	}
	events := make([]Event, 0, len(e.Content.Parts))
	for _, p := range e.Content.Parts {
		events = append(events, Classify(p))
	}
	return events
}
