// Package cli is the terminal chat front end.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"salesagent/internal/conversation"
	"salesagent/internal/logger"

	"github.com/charmbracelet/glamour"
)

const (
	ExitCommand  = "exit"
	ResetCommand = "/reset"
)

// REPL reads user messages line by line and streams each reply
type REPL struct {
	ctrl     *conversation.Controller
	input    LineReader
	writer   *StreamingWriter
	markdown *glamour.TermRenderer
	log      *logger.Logger
}

func NewREPL(ctrl *conversation.Controller, input LineReader, writer *StreamingWriter, log *logger.Logger) *REPL {
	if log == nil {
		log = logger.Nop()
	}
	return &REPL{ctrl: ctrl, input: input, writer: writer, log: log}
}

// SetMarkdown renders each committed reply with r instead of streaming it
func (r *REPL) SetMarkdown(renderer *glamour.TermRenderer) {
	r.markdown = renderer
}

// Run connects eagerly and chats until exit or end of input. Only a failure
// to create the first session is returned.
func (r *REPL) Run(ctx context.Context) error {
	defer r.input.Close()

	r.writer.WriteStyledLine("\n--- Connecting to Sales Enablement Agent ---\n", bannerStyle)
	h, err := r.ctrl.Acquire(ctx)
	if err != nil {
		return err
	}
	r.writer.WriteLine("Session created: " + h.SessionID)
	r.writer.WriteLine("Type your message below. Type 'exit' to quit.\n")

	for {
		line, err := r.input.ReadLine()
		if err == io.EOF {
			r.goodbye()
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		msg := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(msg, ExitCommand):
			r.goodbye()
			return nil
		case msg == ResetCommand:
			r.reset(ctx)
			continue
		case msg == "":
			continue
		}

		if ctx.Err() != nil {
			r.goodbye()
			return nil
		}
		r.turn(ctx, msg)
	}
}

func (r *REPL) turn(ctx context.Context, msg string) {
	display := NewTerminalDisplay(r.writer, r.markdown)
	if _, err := r.ctrl.Submit(ctx, msg, display); err != nil {
		r.log.Debug("Submit failed: %v", err)
		r.writer.WriteStyledLine(fmt.Sprintf("Error: %v", err), errorStyle)
	}
	r.writer.WriteLine("")
}

func (r *REPL) reset(ctx context.Context) {
	r.ctrl.Reset()
	h, err := r.ctrl.Acquire(ctx)
	if err != nil {
		r.writer.WriteStyledLine(fmt.Sprintf("Error: %v", err), errorStyle)
		return
	}
	r.writer.WriteLine("Conversation reset. Session created: " + h.SessionID + "\n")
}

func (r *REPL) goodbye() {
	r.writer.WriteLine("\nEnding session. Goodbye 👋")
}
