package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"salesagent/internal/agent"
	"salesagent/internal/llm"
	"salesagent/internal/logger"
	"salesagent/internal/tool"

	"github.com/google/uuid"
)

// TruncationNotice is appended when the model stops at its token limit
const TruncationNotice = "\n[Response truncated due to length limit]"

// execution tracks the progress of one query for logging
type execution struct {
	log           *logger.Logger
	startTime     time.Time
	currentTurn   int
	toolCallCount int
}

func newExecution(log *logger.Logger) *execution {
	return &execution{log: log, startTime: time.Now()}
}

func (e *execution) end() {
	e.log.SessionEnd(time.Since(e.startTime), e.currentTurn)
}

type query struct {
	runtime      *Runtime
	session      *session
	stream       *stream
	invocationID string
	exec         *execution
}

// run is the agent loop: call the model, run the tools it asks for, feed
// the results back, until the model answers without tool calls.
func (q *query) run(ctx context.Context, message string) error {
	q.session.mu.Lock()
	defer q.session.mu.Unlock()

	r := q.runtime
	messages := make([]llm.Message, 0, len(q.session.messages)+2)
	if prompt := r.systemPrompt(); prompt != "" {
		messages = append(messages, llm.SystemMessage(prompt))
	}
	messages = append(messages, q.session.messages...)
	messages = append(messages, llm.UserMessage(message))

	for turn := 0; turn < r.cfg.MaxTurns; turn++ {
		q.exec.currentTurn = turn + 1
		r.log.Debug("Turn %d: calling %s", turn+1, r.client.Model())

		resp, err := r.client.Chat(ctx, &llm.ChatRequest{
			Messages:    messages,
			Tools:       r.registry.GetToolDefinitions(),
			Temperature: r.cfg.Temperature,
			MaxTokens:   r.cfg.MaxTokens,
		})
		if err != nil {
			r.log.Error("Model call failed: %v", err)
			return agent.QueryFailure("model call", err)
		}
		messages = append(messages, resp.Message)

		text := resp.Message.Content
		if resp.StopReason == llm.StopReasonLength && len(resp.Message.ToolCalls) == 0 {
			text += TruncationNotice
		}
		if text != "" {
			if err := q.emit(ctx, "model", agent.TextPart(text)); err != nil {
				return err
			}
		}

		if len(resp.Message.ToolCalls) == 0 {
			q.commit(messages)
			q.exec.end()
			return nil
		}

		results, err := q.runTools(ctx, resp.Message.ToolCalls)
		if err != nil {
			return err
		}
		for _, tr := range results {
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: tr.CallID,
				Content:    tr.Result.Text(),
				Name:       tr.ToolName,
				Timestamp:  tr.EndTime,
			})
		}
	}

	r.log.Error("Max turns exceeded")
	return agent.QueryFailure("agent loop", fmt.Errorf("max turns (%d) exceeded", r.cfg.MaxTurns))
}

func (q *query) runTools(ctx context.Context, calls []*llm.ToolCall) ([]*tool.CallResult, error) {
	parts := make([]agent.Part, 0, len(calls))
	for _, tc := range calls {
		parts = append(parts, agent.Part{FunctionCall: &agent.FunctionCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: decodeArgs(tc.Function.Arguments),
		}})
	}
	if err := q.emit(ctx, "model", parts...); err != nil {
		return nil, err
	}

	q.exec.toolCallCount += len(calls)
	results, err := q.runtime.executor.Execute(ctx, calls)
	if err != nil {
		return nil, agent.QueryFailure("tool execution", err)
	}

	responses := make([]agent.Part, 0, len(results))
	for _, tr := range results {
		responses = append(responses, agent.Part{FunctionResponse: &agent.FunctionResponse{
			ID:       tr.CallID,
			Name:     tr.ToolName,
			Response: map[string]any{"result": tr.Result.Text()},
		}})
	}
	if err := q.emit(ctx, "user", responses...); err != nil {
		return nil, err
	}
	return results, nil
}

// commit stores the finished exchange, minus the system prompt
func (q *query) commit(messages []llm.Message) {
	if len(messages) > 0 && messages[0].Role == llm.RoleSystem {
		messages = messages[1:]
	}
	q.session.messages = append([]llm.Message(nil), messages...)
}

// emit hands one envelope to the consumer. The envelope owns its parts, so
// callers may reuse the slice afterwards.
func (q *query) emit(ctx context.Context, role string, parts ...agent.Part) error {
	env := &agent.Envelope{
		ID:           uuid.New().String(),
		InvocationID: q.invocationID,
		Author:       q.runtime.cfg.Name,
		Content:      &agent.Content{Role: role, Parts: append([]agent.Part(nil), parts...)},
	}
	select {
	case q.stream.events <- env:
		return nil
	case <-ctx.Done():
		return agent.QueryFailure("emit", ctx.Err())
	}
}

func decodeArgs(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw": raw}
	}
	return args
}

// stream hands envelopes from the loop goroutine to the caller. err is
// written before events is closed.
type stream struct {
	events    chan *agent.Envelope
	err       error
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *stream) Recv() (*agent.Envelope, error) {
	env, ok := <-s.events
	if ok {
		return env, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

// Close stops the loop and waits for it to exit
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		for range s.events {
		}
	})
	return nil
}
