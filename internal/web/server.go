// Package web serves the browser chat UI and streams replies over a
// websocket.
package web

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"salesagent/internal/agent"
	"salesagent/internal/conversation"
	"salesagent/internal/logger"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

//go:embed index.html
var indexHTML []byte

const (
	writeTimeout = 10 * time.Second
	readLimit    = 64 * 1024
)

// Server keeps one conversation per browser client id, so a reload resumes
// the same transcript and session.
type Server struct {
	runtime agent.Runtime
	userID  string
	opts    conversation.Options
	log     *logger.Logger

	mu            sync.RWMutex
	conversations map[string]*conversation.Controller
}

func NewServer(runtime agent.Runtime, userID string, opts conversation.Options, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Log == nil {
		opts.Log = log
	}
	return &Server{
		runtime:       runtime,
		userID:        userID,
		opts:          opts,
		log:           log,
		conversations: make(map[string]*conversation.Controller),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves on addr until ctx ends
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("Web UI listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web listen: %w", err)
	}
	return nil
}

// controller returns the conversation for clientID, creating it on first use
func (s *Server) controller(clientID string) *conversation.Controller {
	s.mu.RLock()
	c, ok := s.conversations[clientID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[clientID]; ok {
		return c
	}
	c = conversation.New(s.runtime, s.userID, s.opts)
	s.conversations[clientID] = c
	return c
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	if _, err := uuid.Parse(clientID); err != nil {
		clientID = uuid.New().String()
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept: %v", err)
		return
	}
	conn.SetReadLimit(readLimit)
	defer conn.CloseNow()

	ctx := r.Context()
	sess := &wsSession{
		conn:     conn,
		ctrl:     s.controller(clientID),
		log:      s.log.With("client", clientID),
		clientID: clientID,
	}
	if err := sess.serve(ctx); err != nil && websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
		sess.log.Debug("websocket closed: %v", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// wsSession is one browser connection. Writes come from both the read loop
// and the turn goroutine, so they are serialized.
type wsSession struct {
	conn     *websocket.Conn
	ctrl     *conversation.Controller
	log      *logger.Logger
	clientID string

	writeMu sync.Mutex
	turns   sync.WaitGroup
}

func (ws *wsSession) send(ctx context.Context, f Frame) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws.conn, f)
}

func (ws *wsSession) serve(ctx context.Context) error {
	defer ws.turns.Wait()

	if err := ws.send(ctx, Frame{Type: TypeHello, Client: ws.clientID}); err != nil {
		return err
	}
	if err := ws.sendHistory(ctx); err != nil {
		return err
	}

	for {
		var f Frame
		if err := wsjson.Read(ctx, ws.conn, &f); err != nil {
			return err
		}

		switch f.Type {
		case TypeSubmit:
			ws.submit(ctx, f.Content)
		case TypeReset:
			if ws.ctrl.Busy() {
				ws.send(ctx, Frame{Type: TypeBusy})
				continue
			}
			ws.ctrl.Reset()
			ws.send(ctx, Frame{Type: TypeReset})
		default:
			ws.log.Debug("unknown frame type %q", f.Type)
		}
	}
}

func (ws *wsSession) sendHistory(ctx context.Context) error {
	return ws.send(ctx, Frame{Type: TypeHistory, Turns: ws.ctrl.Transcript()})
}

// submit starts a turn in the background so the read loop can answer
// further frames while the reply streams
func (ws *wsSession) submit(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if ws.ctrl.Busy() {
		ws.send(ctx, Frame{Type: TypeBusy})
		return
	}

	ws.send(ctx, Frame{Type: TypeUser, Content: content})
	ws.send(ctx, Frame{Type: TypeStatus, Text: ThinkingStatus})

	// The turn outlives the connection so a reload still finds the reply
	// in the transcript.
	turnCtx := context.WithoutCancel(ctx)

	ws.turns.Add(1)
	go func() {
		defer ws.turns.Done()

		display := &browserDisplay{ctx: ctx, session: ws}
		_, err := ws.ctrl.Submit(turnCtx, content, display)
		if err == nil {
			if display.final != nil {
				display.send(*display.final)
			}
			return
		}
		// Nothing was recorded, so resync the page with the transcript
		if errors.Is(err, conversation.ErrTurnInFlight) {
			ws.send(ctx, Frame{Type: TypeBusy})
		} else {
			ws.log.Debug("Submit failed: %v", err)
			ws.send(ctx, Frame{Type: TypeError, Text: agentErrorLabel + err.Error()})
		}
		ws.sendHistory(ctx)
	}()
}
