// Package local runs the sales agent in process: the model decides which
// sales tool to call, tools run through the executor and every step is
// reported as an agent.Envelope, the same way the remote engine streams it.
package local

import (
	"context"
	"fmt"
	"sync"

	"salesagent/internal/agent"
	"salesagent/internal/llm"
	"salesagent/internal/logger"
	"salesagent/internal/tool"

	"github.com/google/uuid"
)

const (
	DefaultName     = "sales_enablement_agent"
	DefaultMaxTurns = 10
)

type Config struct {
	Name         string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	MaxTurns     int
}

type session struct {
	mu       sync.Mutex // held for the whole of a query
	userID   string
	messages []llm.Message
}

// Runtime is an in-memory agent.Runtime. Sessions live until the process
// exits.
type Runtime struct {
	client   llm.Client
	registry *tool.Registry
	executor *tool.Executor
	cfg      Config
	log      *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func New(client llm.Client, registry *tool.Registry, executor *tool.Executor, cfg Config, log *logger.Logger) *Runtime {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if log == nil {
		log = logger.Nop()
	}
	if executor == nil {
		executor = tool.NewExecutor(registry, log)
	}
	return &Runtime{
		client:   client,
		registry: registry,
		executor: executor,
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// systemPrompt joins the configured instruction with the tools' guidance
func (r *Runtime) systemPrompt() string {
	prompt := r.cfg.SystemPrompt
	if bp := r.registry.GetToolBestPractices(); bp != "" {
		if prompt != "" {
			prompt += "\n\n"
		}
		prompt += bp
	}
	return prompt
}

func (r *Runtime) CreateSession(ctx context.Context, userID string) (agent.SessionHandle, error) {
	if userID == "" {
		return agent.SessionHandle{}, agent.ConnectionFailure("create session", fmt.Errorf("user id is required"))
	}
	if err := ctx.Err(); err != nil {
		return agent.SessionHandle{}, agent.ConnectionFailure("create session", err)
	}

	id := uuid.New().String()
	r.mu.Lock()
	r.sessions[id] = &session{userID: userID}
	r.mu.Unlock()

	r.log.SessionStart(userID, id)
	return agent.SessionHandle{UserID: userID, SessionID: id}, nil
}

func (r *Runtime) lookup(h agent.SessionHandle) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[h.SessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", h.SessionID)
	}
	if s.userID != h.UserID {
		return nil, fmt.Errorf("session %s does not belong to user %s", h.SessionID, h.UserID)
	}
	return s, nil
}

// StreamQuery starts the tool-calling loop for message in the background
// and returns its envelopes as they are produced.
func (r *Runtime) StreamQuery(ctx context.Context, handle agent.SessionHandle, message string) (agent.Stream, error) {
	s, err := r.lookup(handle)
	if err != nil {
		return nil, agent.QueryFailure("stream query", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	st := &stream{
		events: make(chan *agent.Envelope),
		cancel: cancel,
	}
	q := &query{
		runtime:      r,
		session:      s,
		stream:       st,
		invocationID: uuid.New().String(),
		exec:         newExecution(r.log),
	}
	go func() {
		defer close(st.events)
		st.err = q.run(ctx, message)
	}()
	return st, nil
}
