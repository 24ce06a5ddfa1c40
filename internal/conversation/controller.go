// Package conversation owns one chat: its transcript, its session handle
// and the single turn that may be in flight.
package conversation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"salesagent/internal/agent"
	"salesagent/internal/logger"
)

// ErrTurnInFlight rejects a submission made while a reply is streaming
var ErrTurnInFlight = errors.New("a turn is already in flight")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one committed transcript entry
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is the conversation's transcript and session. Handle is nil until
// the first submission or after a reset.
type State struct {
	Transcript []Turn
	Handle     *agent.SessionHandle
}

type Options struct {
	// Timeout bounds one turn. Zero means no deadline.
	Timeout time.Duration
	Log     *logger.Logger
}

type Controller struct {
	runtime agent.Runtime
	userID  string
	opts    Options

	mu         sync.Mutex
	state      State
	generation int // bumped by Reset
	inFlight   bool
}

func New(runtime agent.Runtime, userID string, opts Options) *Controller {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	return &Controller{runtime: runtime, userID: userID, opts: opts}
}

func (c *Controller) UserID() string { return c.userID }

// Acquire returns the current session, creating one if there is none
func (c *Controller) Acquire(ctx context.Context) (agent.SessionHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquireLocked(ctx)
}

func (c *Controller) acquireLocked(ctx context.Context) (agent.SessionHandle, error) {
	if c.state.Handle != nil {
		return *c.state.Handle, nil
	}
	h, err := c.runtime.CreateSession(ctx, c.userID)
	if err == nil && !h.Valid() {
		err = errors.New("runtime returned an empty session")
	}
	if err != nil {
		c.opts.Log.Error("Session creation failed for %s: %v", c.userID, err)
		return agent.SessionHandle{}, agent.ConnectionFailure("create session", err)
	}
	c.state.Handle = &h
	c.opts.Log.Debug("Session created: %s", h.SessionID)
	return h, nil
}

// Reset clears the transcript and drops the session. A turn still in
// flight finishes but is not recorded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = State{}
	c.generation++
	c.opts.Log.Info("Conversation reset for %s", c.userID)
}

// Transcript returns a copy of the committed turns
func (c *Controller) Transcript() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.state.Transcript...)
}

// Handle returns the current session, if any
func (c *Controller) Handle() (agent.SessionHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Handle == nil {
		return agent.SessionHandle{}, false
	}
	return *c.state.Handle, true
}

// Busy reports whether a turn is streaming
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Submit sends message and streams the reply into d. Blank input is a
// no-op and returns a nil turn. Quota and transport failures are not
// returned: they become the advisory reply. Only ErrTurnInFlight and
// connection failures are returned, and then no turn is recorded.
func (c *Controller) Submit(ctx context.Context, message string, d Display) (*Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	c.inFlight = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	// The turn belongs to the session it was sent on; a Reset from here on
	// drops the reply.
	c.mu.Lock()
	handle, err := c.acquireLocked(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	gen := c.generation
	c.state.Transcript = append(c.state.Transcript, Turn{Role: RoleUser, Content: message})
	c.mu.Unlock()

	turn := c.stream(ctx, handle, message, NewSink(d))

	c.mu.Lock()
	if gen == c.generation {
		c.state.Transcript = append(c.state.Transcript, turn)
	}
	c.mu.Unlock()
	return &turn, nil
}

func (c *Controller) stream(ctx context.Context, handle agent.SessionHandle, message string, sink *Sink) Turn {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	st, err := c.runtime.StreamQuery(ctx, handle, message)
	if err != nil {
		return c.fail(sink, err)
	}
	defer st.Close()

	for {
		env, err := st.Recv()
		if err == io.EOF {
			c.opts.Log.Debug("Turn complete in %s", time.Since(start).Round(time.Millisecond))
			return sink.Finish(nil)
		}
		if err != nil {
			return c.fail(sink, err)
		}
		for _, ev := range env.Events() {
			sink.Handle(ev)
		}
	}
}

func (c *Controller) fail(sink *Sink, err error) Turn {
	err = agent.QueryFailure("stream query", err)
	if errors.Is(err, agent.ErrQuotaExceeded) {
		c.opts.Log.Warn("Quota exceeded: %v", err)
	} else {
		c.opts.Log.Error("Agent error: %v", err)
	}
	return sink.Finish(err)
}
