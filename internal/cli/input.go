package cli

import (
	"bufio"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// Prompt precedes every line of user input
const Prompt = "You: "

// LineReader reads one user message at a time. It returns io.EOF when
// input ends.
type LineReader interface {
	ReadLine() (string, error)
	Close() error
}

// NewLineReader uses readline with history when in is a terminal and a
// plain line scanner otherwise
func NewLineReader(in io.Reader, out io.Writer, historyFile string) (LineReader, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          Prompt,
			HistoryFile:     historyFile,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
			Stdin:           f,
			Stdout:          out,
		})
		if err != nil {
			return nil, err
		}
		return &readlineReader{rl: rl}, nil
	}
	return &scanReader{scanner: bufio.NewScanner(in), out: out}, nil
}

type readlineReader struct {
	rl *readline.Instance
}

func (r *readlineReader) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if err == readline.ErrInterrupt {
		// Ctrl-C on an empty line quits, otherwise it clears the line
		if line == "" {
			return "", io.EOF
		}
		return "", nil
	}
	return line, err
}

func (r *readlineReader) Close() error {
	return r.rl.Close()
}

type scanReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *scanReader) ReadLine() (string, error) {
	io.WriteString(r.out, Prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() error { return nil }
