package agent

import (
	"context"
)

// SessionHandle identifies one remote conversation. It is immutable once
// created; resetting a conversation discards it and acquires a new one.
type SessionHandle struct {
	UserID    string
	SessionID string
}

// Valid reports whether the handle was issued by a runtime
func (h SessionHandle) Valid() bool {
	return h.UserID != "" && h.SessionID != ""
}

// Runtime is an agent runtime that owns sessions and streams query events.
type Runtime interface {
	// CreateSession acquires a new session for userID. Failures wrap
	// ErrConnection.
	CreateSession(ctx context.Context, userID string) (SessionHandle, error)

	// StreamQuery sends one message and returns the event stream for it.
	// Failures wrap ErrQuotaExceeded or ErrTransport.
	StreamQuery(ctx context.Context, handle SessionHandle, message string) (Stream, error)
}

// Stream is a finite, non-restartable sequence of envelopes for one query.
// Recv returns io.EOF once the stream is exhausted. Errors other than io.EOF
// wrap ErrQuotaExceeded or ErrTransport.
type Stream interface {
	Recv() (*Envelope, error)
	Close() error
}
