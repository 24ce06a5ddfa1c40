package vertex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"salesagent/internal/agent"

	"google.golang.org/api/googleapi"
)

const maxLineSize = 10 * 1024 * 1024

// eventStream reads one JSON event per line. Lines may carry an SSE
// "data:" prefix; blank lines and comments are skipped.
type eventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func newEventStream(body io.ReadCloser) *eventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &eventStream{body: body, scanner: scanner}
}

// remoteError covers the error shapes the platform may send mid-stream
type remoteError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *eventStream) Recv() (*agent.Envelope, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || line[0] == ':' {
			continue
		}
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			line = bytes.TrimSpace(rest)
			if len(line) == 0 {
				continue
			}
		}
		if bytes.Equal(line, []byte("[DONE]")) {
			break
		}

		if err := decodeRemoteError(line); err != nil {
			s.done = true
			return nil, agent.QueryFailure("recv", err)
		}

		var env agent.Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			s.done = true
			return nil, agent.QueryFailure("recv", fmt.Errorf("malformed event: %w", err))
		}
		if env.ErrorCode != "" && env.Content == nil {
			s.done = true
			return nil, agent.QueryFailure("recv", fmt.Errorf("agent error %s: %s", env.ErrorCode, env.ErrorMessage))
		}
		return &env, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return nil, agent.QueryFailure("recv", err)
	}
	return nil, io.EOF
}

func (s *eventStream) Close() error {
	s.done = true
	return s.body.Close()
}

func decodeRemoteError(line []byte) error {
	if !bytes.Contains(line, []byte(`"error"`)) && !bytes.Contains(line, []byte(`"code"`)) {
		return nil
	}

	var re remoteError
	if err := json.Unmarshal(line, &re); err != nil {
		return nil
	}
	switch {
	case re.Error != nil:
		msg := re.Error.Message
		if re.Error.Status != "" {
			msg = re.Error.Status + ": " + msg
		}
		return &googleapi.Error{Code: re.Error.Code, Message: msg}
	case re.Code != 0 && re.Message != "":
		return &googleapi.Error{Code: re.Code, Message: re.Message}
	}
	return nil
}
