package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"salesagent/internal/agent"
	"salesagent/internal/conversation"
	"salesagent/internal/logger"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	bannerStyle  = lipgloss.NewStyle().Bold(true)
)

// StreamingWriter writes chat output, styled when color is on
type StreamingWriter struct {
	writer    io.Writer
	colorMode bool
}

func NewStreamingWriter(w io.Writer) *StreamingWriter {
	if w == nil {
		w = os.Stdout
	}
	return &StreamingWriter{
		writer:    w,
		colorMode: true,
	}
}

func (sw *StreamingWriter) SetColorMode(enabled bool) {
	sw.colorMode = enabled
}

// Write writes content to the output
func (sw *StreamingWriter) Write(content string) {
	fmt.Fprint(sw.writer, content)
}

// WriteLine writes a line to the output
func (sw *StreamingWriter) WriteLine(content string) {
	fmt.Fprintln(sw.writer, content)
}

// WriteStyled writes content through style if color mode is enabled
func (sw *StreamingWriter) WriteStyled(content string, style lipgloss.Style) {
	if sw.colorMode {
		fmt.Fprint(sw.writer, style.Render(content))
	} else {
		fmt.Fprint(sw.writer, content)
	}
}

func (sw *StreamingWriter) WriteStyledLine(content string, style lipgloss.Style) {
	sw.WriteStyled(content, style)
	fmt.Fprintln(sw.writer)
}

// Flush ensures all content is written (useful for buffered writers)
func (sw *StreamingWriter) Flush() {
	if flusher, ok := sw.writer.(interface{ Flush() error }); ok {
		flusher.Flush()
	}
}

// FormatNotice renders a tool notice as a single line
func FormatNotice(n conversation.Notice) string {
	switch n.Kind {
	case conversation.NoticeToolCall:
		return fmt.Sprintf("[Tool Call] %s | Args: %s", n.Name, logger.FormatArgs(n.Args))
	default:
		return "[Tool Result] Success"
	}
}

// NewMarkdownRenderer returns a glamour renderer for committed replies
func NewMarkdownRenderer(color bool, width int) (*glamour.TermRenderer, error) {
	style := glamour.WithStandardStyle("notty")
	if color {
		style = glamour.WithAutoStyle()
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
}

// TerminalDisplay prints one turn. Text streams as it arrives unless a
// markdown renderer is set, in which case the committed reply is rendered
// once at the end.
type TerminalDisplay struct {
	writer   *StreamingWriter
	markdown *glamour.TermRenderer

	labeled bool // "Agent: " printed for the current run of text
	midLine bool
}

func NewTerminalDisplay(w *StreamingWriter, markdown *glamour.TermRenderer) *TerminalDisplay {
	return &TerminalDisplay{writer: w, markdown: markdown}
}

func (d *TerminalDisplay) Text(delta, buffer string) {
	if d.markdown != nil || delta == "" {
		return
	}
	if !d.labeled {
		d.writer.WriteStyled("Agent: ", labelStyle)
		d.labeled = true
	}
	d.writer.Write(delta)
	d.midLine = !strings.HasSuffix(delta, "\n")
}

func (d *TerminalDisplay) Notice(n conversation.Notice) {
	d.endLine()
	d.writer.WriteStyledLine(FormatNotice(n), noticeStyle)
	d.labeled = false
}

func (d *TerminalDisplay) Complete(content string, err error) {
	d.endLine()
	if err != nil {
		style := errorStyle
		if errors.Is(err, agent.ErrQuotaExceeded) {
			style = warningStyle
		}
		d.writer.WriteStyled("Agent: ", labelStyle)
		d.writer.WriteStyledLine(content, style)
		return
	}
	if d.markdown == nil || content == "" {
		return
	}

	d.writer.WriteStyledLine("Agent:", labelStyle)
	out, rerr := d.markdown.Render(content)
	if rerr != nil {
		d.writer.WriteLine(content)
		return
	}
	d.writer.Write(out)
}

func (d *TerminalDisplay) endLine() {
	if d.midLine {
		d.writer.WriteLine("")
		d.midLine = false
	}
}
