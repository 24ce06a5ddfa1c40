package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salesagent/internal/agent"
	"salesagent/internal/agent/agenttest"
	"salesagent/internal/conversation"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, rt agent.Runtime) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(rt, "gui_web_user", conversation.Options{}, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, client string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?client=" + client
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var f Frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	return f
}

// readUntil collects frames up to and including the first of type typ
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f := read(t, conn)
		frames = append(frames, f)
		if f.Type == typ {
			return frames
		}
	}
}

func write(t *testing.T, conn *websocket.Conn, f Frame) {
	t.Helper()
	require.NoError(t, wsjson.Write(context.Background(), conn, f))
}

func handshake(t *testing.T, conn *websocket.Conn) (string, []conversation.Turn) {
	t.Helper()
	hello := read(t, conn)
	require.Equal(t, TypeHello, hello.Type)
	history := read(t, conn)
	require.Equal(t, TypeHistory, history.Type)
	return hello.Client, history.Turns
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, agenttest.NewRuntime())

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "💼 Sales Lead Agent")
	assert.Contains(t, string(body), "How can I help with your leads today?")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
}

func TestWS_StreamedTurn(t *testing.T) {
	rt := agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{
		agenttest.Text("Hi "),
		agenttest.Call("analyze_lead", nil),
		agenttest.Text("there"),
		agenttest.Response("analyze_lead"),
	}})
	srv := newTestServer(t, rt)
	conn := dial(t, srv, "")

	client, turns := handshake(t, conn)
	_, err := uuid.Parse(client)
	assert.NoError(t, err)
	assert.Empty(t, turns)

	write(t, conn, Frame{Type: TypeSubmit, Content: "  research Acme "})
	frames := readUntil(t, conn, TypeComplete)

	assert.Equal(t, []Frame{
		{Type: TypeUser, Content: "research Acme"},
		{Type: TypeStatus, Text: ThinkingStatus},
		{Type: TypeText, Content: "Hi ▌"},
		{Type: TypeStatus, Text: "🛠️ Calling Tool: `analyze_lead`"},
		{Type: TypeText, Content: "Hi there▌"},
		{Type: TypeStatus, Text: ToolDoneStatus},
		{Type: TypeComplete, Content: "Hi there", Label: conversation.CompleteLabel},
	}, frames)
	assert.Equal(t, "gui_web_user", rt.Handles()[0].UserID)
}

func TestWS_ReloadKeepsTranscript(t *testing.T) {
	rt := agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{agenttest.Text("ok")}})
	srv := newTestServer(t, rt)

	conn := dial(t, srv, "")
	client, _ := handshake(t, conn)
	write(t, conn, Frame{Type: TypeSubmit, Content: "hello"})
	readUntil(t, conn, TypeComplete)
	conn.Close(websocket.StatusNormalClosure, "")

	again := dial(t, srv, client)
	same, turns := handshake(t, again)
	assert.Equal(t, client, same)
	assert.Equal(t, []conversation.Turn{
		{Role: conversation.RoleUser, Content: "hello"},
		{Role: conversation.RoleAssistant, Content: "ok"},
	}, turns)

	other := dial(t, srv, uuid.New().String())
	_, turns = handshake(t, other)
	assert.Empty(t, turns)
}

func TestWS_Reset(t *testing.T) {
	rt := agenttest.NewRuntime(agenttest.Script{Envelopes: []*agent.Envelope{agenttest.Text("ok")}})
	srv := newTestServer(t, rt)
	conn := dial(t, srv, "")
	client, _ := handshake(t, conn)

	write(t, conn, Frame{Type: TypeSubmit, Content: "one"})
	readUntil(t, conn, TypeComplete)

	write(t, conn, Frame{Type: TypeReset})
	assert.Equal(t, TypeReset, read(t, conn).Type)

	write(t, conn, Frame{Type: TypeSubmit, Content: "two"})
	readUntil(t, conn, TypeComplete)
	assert.Equal(t, 2, rt.Sessions())

	conn.Close(websocket.StatusNormalClosure, "")
	_, turns := handshake(t, dial(t, srv, client))
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].Content)
}

func TestWS_QuotaWarning(t *testing.T) {
	rt := agenttest.NewRuntime(agenttest.Script{
		Envelopes: []*agent.Envelope{agenttest.Text("partial")},
		StreamErr: errors.New("429 Too Many Requests"),
	})
	srv := newTestServer(t, rt)
	conn := dial(t, srv, "")
	handshake(t, conn)

	write(t, conn, Frame{Type: TypeSubmit, Content: "go"})
	frames := readUntil(t, conn, TypeComplete)

	n := len(frames)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, Frame{Type: TypeWarning, Text: QuotaWarning}, frames[n-2])
	assert.Equal(t, Frame{Type: TypeComplete, Content: agent.QuotaAdvisory}, frames[n-1])
}

func TestWS_ConnectionError(t *testing.T) {
	rt := agenttest.NewRuntime()
	rt.SessionErr = errors.New("no such reasoning engine")
	srv := newTestServer(t, rt)
	conn := dial(t, srv, "")
	handshake(t, conn)

	write(t, conn, Frame{Type: TypeSubmit, Content: "go"})
	frames := readUntil(t, conn, TypeHistory)

	n := len(frames)
	assert.Equal(t, TypeError, frames[n-2].Type)
	assert.Contains(t, frames[n-2].Text, "no such reasoning engine")
	assert.Empty(t, frames[n-1].Turns)
}
