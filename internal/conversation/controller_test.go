package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"salesagent/internal/agent"
	"salesagent/internal/agent/agenttest"
	"salesagent/internal/agent/local"
	"salesagent/internal/llm/llmtest"
	"salesagent/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// recorder is a Display that keeps everything it is shown
type recorder struct {
	mu        sync.Mutex
	deltas    []string
	buffers   []string
	notices   []Notice
	completed []string
	err       error
}

func (r *recorder) Text(delta, buffer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
	r.buffers = append(r.buffers, buffer)
}

func (r *recorder) Notice(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Complete(content string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, content)
	r.err = err
}

func TestSubmit_AppendsUserAndAssistantTurns(t *testing.T) {
	rt := agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{
		agenttest.Text("Hello "),
		agenttest.Text("there"),
	}})
	c := New(rt, "user", Options{})

	for _, msg := range []string{"hi", "  research Acme  ", "x"} {
		before := len(c.Transcript())
		turn, err := c.Submit(context.Background(), msg, nil)
		require.NoError(t, err)
		require.NotNil(t, turn)

		got := c.Transcript()
		require.Len(t, got, before+2)
		assert.Equal(t, RoleUser, got[before].Role)
		assert.Equal(t, RoleAssistant, got[before+1].Role)
		assert.Equal(t, "Hello there", got[before+1].Content)
	}
	assert.Equal(t, "research Acme", c.Transcript()[2].Content)
	assert.Equal(t, []string{"hi", "research Acme", "x"}, rt.Queries())
	assert.Equal(t, 1, rt.Sessions())
}

func TestSubmit_BlankInputIsNoop(t *testing.T) {
	rt := agenttest.NewRuntime()
	c := New(rt, "user", Options{})

	for _, msg := range []string{"", "   ", "\n\t"} {
		turn, err := c.Submit(context.Background(), msg, nil)
		require.NoError(t, err)
		assert.Nil(t, turn)
	}
	assert.Empty(t, c.Transcript())
	assert.Empty(t, rt.Queries())
	assert.Zero(t, rt.Sessions())
}

func TestSubmit_ContentIsConcatenatedDeltas(t *testing.T) {
	rt := agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{
		agenttest.Text("1. **Company"),
		agenttest.Text(" Context:**"),
		agenttest.Parts(agent.TextPart(" fintech"), agent.TextPart(", 200 staff")),
	}})
	c := New(rt, "user", Options{})
	rec := &recorder{}

	turn, err := c.Submit(context.Background(), "go", rec)
	require.NoError(t, err)

	assert.Equal(t, "1. **Company Context:** fintech, 200 staff", turn.Content)
	assert.Equal(t, []string{"1. **Company", " Context:**", " fintech", ", 200 staff"}, rec.deltas)
	assert.Equal(t, "1. **Company Context:**", rec.buffers[1])
	assert.Equal(t, []string{turn.Content}, rec.completed)
	assert.NoError(t, rec.err)
}

func TestSubmit_QuotaMidStreamReplacesPartialText(t *testing.T) {
	rt := agenttest.NewRuntime(agenttest.Script{
		Envelopes: []*agent.Envelope{agenttest.Text("partial brief")},
		StreamErr: &googleapi.Error{Code: 429, Message: "Resource has been exhausted"},
	})
	c := New(rt, "user", Options{})
	rec := &recorder{}

	turn, err := c.Submit(context.Background(), "go", rec)
	require.NoError(t, err)

	assert.Equal(t, agent.QuotaAdvisory, turn.Content)
	assert.Equal(t, agent.QuotaAdvisory, c.Transcript()[1].Content)
	assert.ErrorIs(t, rec.err, agent.ErrQuotaExceeded)
}

func TestSubmit_DispatchFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"quota", errors.New("429 RESOURCE_EXHAUSTED"), agent.QuotaAdvisory},
		{"transport", errors.New("connection reset"), agent.TransportAdvisory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := agenttest.NewRuntime(agenttest.Script{DispatchErr: tt.err})
			c := New(rt, "user", Options{})

			turn, err := c.Submit(context.Background(), "go", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, turn.Content)
			assert.Len(t, c.Transcript(), 2)
		})
	}
}

func TestSubmit_ConnectionFailureAppendsNothing(t *testing.T) {
	rt := agenttest.NewRuntime()
	rt.SessionErr = errors.New("invalid resource name")
	c := New(rt, "user", Options{})

	turn, err := c.Submit(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, agent.ErrConnection)
	assert.Nil(t, turn)
	assert.Empty(t, c.Transcript())
	assert.Empty(t, rt.Queries())
}

func TestReset_ClearsTranscriptAndReacquires(t *testing.T) {
	rt := agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{agenttest.Text("ok")}})
	c := New(rt, "user", Options{})
	ctx := context.Background()

	_, err := c.Submit(ctx, "one", nil)
	require.NoError(t, err)
	first, ok := c.Handle()
	require.True(t, ok)

	c.Reset()
	assert.Empty(t, c.Transcript())
	_, ok = c.Handle()
	assert.False(t, ok)

	_, err = c.Submit(ctx, "two", nil)
	require.NoError(t, err)
	second, ok := c.Handle()
	require.True(t, ok)

	assert.Equal(t, 2, rt.Sessions())
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, []agent.SessionHandle{first, second}, rt.Handles())
	assert.Len(t, c.Transcript(), 2)
}

func TestAcquire_ReusesHandle(t *testing.T) {
	rt := agenttest.NewRuntime()
	c := New(rt, "gui_web_user", Options{})

	h1, err := c.Acquire(context.Background())
	require.NoError(t, err)
	h2, err := c.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, "gui_web_user", h1.UserID)
	assert.Equal(t, 1, rt.Sessions())
}

// blockingRuntime holds every stream open until release is closed
type blockingRuntime struct {
	*agenttest.Runtime
	started chan struct{}
	release chan struct{}
}

func (r *blockingRuntime) StreamQuery(ctx context.Context, h agent.SessionHandle, msg string) (agent.Stream, error) {
	close(r.started)
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, agent.QueryFailure("stream query", ctx.Err())
	}
	return r.Runtime.StreamQuery(ctx, h, msg)
}

func TestSubmit_RejectsConcurrentTurn(t *testing.T) {
	rt := &blockingRuntime{
		Runtime: agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{agenttest.Text("done")}}),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(rt, "user", Options{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "first", nil)
		done <- err
	}()

	<-rt.started
	assert.True(t, c.Busy())
	_, err := c.Submit(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(rt.release)
	require.NoError(t, <-done)
	assert.False(t, c.Busy())
	assert.Len(t, c.Transcript(), 2)
}

func TestSubmit_TimeoutIsTransportFailure(t *testing.T) {
	rt := &blockingRuntime{
		Runtime: agenttest.NewRuntime(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(rt, "user", Options{Timeout: 20 * time.Millisecond})
	rec := &recorder{}

	turn, err := c.Submit(context.Background(), "slow", rec)
	require.NoError(t, err)
	assert.Equal(t, agent.TransportAdvisory, turn.Content)
	assert.ErrorIs(t, rec.err, agent.ErrTransport)
	assert.ErrorIs(t, rec.err, context.DeadlineExceeded)
}

func TestReset_DuringTurnDropsReply(t *testing.T) {
	rt := &blockingRuntime{
		Runtime: agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{agenttest.Text("late")}}),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(rt, "user", Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Submit(context.Background(), "first", nil)
	}()

	<-rt.started
	c.Reset()
	close(rt.release)
	<-done

	assert.Empty(t, c.Transcript())
}

// emptySessionRuntime hands out a handle with no session id
type emptySessionRuntime struct {
	*agenttest.Runtime
}

func (emptySessionRuntime) CreateSession(ctx context.Context, userID string) (agent.SessionHandle, error) {
	return agent.SessionHandle{UserID: userID}, nil
}

func TestAcquire_RejectsEmptySession(t *testing.T) {
	c := New(emptySessionRuntime{agenttest.NewRuntime()}, "user", Options{})

	_, err := c.Submit(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, agent.ErrConnection)
	assert.Empty(t, c.Transcript())
	_, ok := c.Handle()
	assert.False(t, ok)
}

// slowSessionRuntime blocks CreateSession until release is closed
type slowSessionRuntime struct {
	*agenttest.Runtime
	creating chan struct{}
	release  chan struct{}
}

func (r *slowSessionRuntime) CreateSession(ctx context.Context, userID string) (agent.SessionHandle, error) {
	close(r.creating)
	<-r.release
	return r.Runtime.CreateSession(ctx, userID)
}

func TestReset_WhileAcquiringDropsTurn(t *testing.T) {
	rt := &slowSessionRuntime{
		Runtime:  agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{agenttest.Text("stale")}}),
		creating: make(chan struct{}),
		release:  make(chan struct{}),
	}
	c := New(rt, "user", Options{})

	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		_, _ = c.Submit(context.Background(), "first", nil)
	}()

	<-rt.creating
	resetDone := make(chan struct{})
	go func() {
		defer close(resetDone)
		c.Reset()
	}()
	time.Sleep(10 * time.Millisecond)
	close(rt.release)
	<-submitted
	<-resetDone

	assert.Empty(t, c.Transcript())
	_, ok := c.Handle()
	assert.False(t, ok)
}

type briefTool struct{}

func (briefTool) Name() string               { return "analyze_lead" }
func (briefTool) Description() string        { return "Research a lead" }
func (briefTool) BestPractices() string      { return "" }
func (briefTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (briefTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	return &tool.Result{Success: true, Output: "Sales Brief: Acme"}, nil
}

func TestSubmit_LocalRuntimeToolNotices(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(briefTool{}))
	client := llmtest.New(
		llmtest.Calls("analyze_lead", `{"company_name":"Acme"}`),
		llmtest.Text("Here is the brief."),
	)
	rt := local.New(client, reg, nil, local.Config{SystemPrompt: "be a sales agent"}, nil)
	c := New(rt, "user", Options{})
	rec := &recorder{}

	turn, err := c.Submit(context.Background(), "research Acme", rec)
	require.NoError(t, err)
	assert.Equal(t, "Here is the brief.", turn.Content)

	require.Len(t, rec.notices, 2)
	assert.Equal(t, NoticeToolCall, rec.notices[0].Kind)
	assert.Equal(t, "analyze_lead", rec.notices[0].Name)
	assert.Equal(t, map[string]any{"company_name": "Acme"}, rec.notices[0].Args)
	assert.Equal(t, NoticeToolResult, rec.notices[1].Kind)
	assert.Equal(t, "analyze_lead", rec.notices[1].Name)
}
