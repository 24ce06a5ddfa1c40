// Package agenttest provides a scripted agent.Runtime for tests.
package agenttest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"salesagent/internal/agent"
)

// Script is the canned outcome of one StreamQuery call.
type Script struct {
	Envelopes   []*agent.Envelope
	StreamErr   error // returned by Recv after the envelopes
	DispatchErr error // returned by StreamQuery itself
}

// Runtime replays scripts in order; the last script repeats.
type Runtime struct {
	mu         sync.Mutex
	scripts    []Script
	SessionErr error

	sessions int
	queries  []string
	handles  []agent.SessionHandle
}

func NewRuntime(scripts ...Script) *Runtime {
	return &Runtime{scripts: scripts}
}

func (r *Runtime) CreateSession(ctx context.Context, userID string) (agent.SessionHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.SessionErr != nil {
		return agent.SessionHandle{}, agent.ConnectionFailure("create session", r.SessionErr)
	}
	r.sessions++
	return agent.SessionHandle{UserID: userID, SessionID: fmt.Sprintf("session-%d", r.sessions)}, nil
}

func (r *Runtime) StreamQuery(ctx context.Context, handle agent.SessionHandle, message string) (agent.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = append(r.queries, message)
	r.handles = append(r.handles, handle)

	var s Script
	if n := len(r.scripts); n > 0 {
		idx := len(r.queries) - 1
		if idx >= n {
			idx = n - 1
		}
		s = r.scripts[idx]
	}
	if s.DispatchErr != nil {
		return nil, agent.QueryFailure("stream query", s.DispatchErr)
	}
	return NewStream(s.Envelopes, s.StreamErr), nil
}

// Sessions returns how many sessions were created
func (r *Runtime) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions
}

// Queries returns the messages dispatched so far
func (r *Runtime) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

// Handles returns the session handle used by each query
func (r *Runtime) Handles() []agent.SessionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]agent.SessionHandle(nil), r.handles...)
}

type sliceStream struct {
	envelopes []*agent.Envelope
	err       error
	pos       int
	closed    bool
}

// NewStream returns a stream over envelopes that ends with err, or io.EOF
// when err is nil.
func NewStream(envelopes []*agent.Envelope, err error) agent.Stream {
	return &sliceStream{envelopes: envelopes, err: err}
}

func (s *sliceStream) Recv() (*agent.Envelope, error) {
	if s.closed {
		return nil, io.EOF
	}
	if s.pos < len(s.envelopes) {
		env := s.envelopes[s.pos]
		s.pos++
		return env, nil
	}
	if s.err != nil {
		return nil, agent.QueryFailure("recv", s.err)
	}
	return nil, io.EOF
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// Text builds an envelope with one text part
func Text(text string) *agent.Envelope {
	return Parts(agent.TextPart(text))
}

// Call builds an envelope with one function call part
func Call(name string, args map[string]any) *agent.Envelope {
	return Parts(agent.Part{FunctionCall: &agent.FunctionCall{Name: name, Args: args}})
}

// Response builds an envelope with one function response part
func Response(name string) *agent.Envelope {
	return Parts(agent.Part{FunctionResponse: &agent.FunctionResponse{
		Name:     name,
		Response: map[string]any{"result": "ok"},
	}})
}

// Parts builds a model-authored envelope from parts
func Parts(parts ...agent.Part) *agent.Envelope {
	return &agent.Envelope{
		Author:  "sales_enablement_agent",
		Content: &agent.Content{Role: "model", Parts: parts},
	}
}
