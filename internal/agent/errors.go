package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"salesagent/internal/llm"

	"google.golang.org/api/googleapi"
)

// Failure kinds. Every error returned by a Runtime or Stream wraps exactly
// one of them.
var (
	ErrConnection    = errors.New("connection error")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrTransport     = errors.New("transport error")
)

const (
	QuotaAdvisory = "The system is currently handling too many requests. " +
		"Please wait about 10-20 seconds before trying again. " +
		"If this persists, we may need to increase the project's Vertex AI quotas."

	TransportAdvisory = "I encountered an unexpected issue. " +
		"You can try resetting the conversation to start a clean session."
)

// Error records which runtime operation failed, the failure kind and the
// underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ConnectionFailure wraps a session acquisition failure
func ConnectionFailure(op string, err error) error {
	if errors.Is(err, ErrConnection) {
		return err
	}
	return &Error{Op: op, Kind: ErrConnection, Err: err}
}

// QueryFailure wraps a dispatch or mid-stream failure as ErrQuotaExceeded or
// ErrTransport. Errors already classified pass through unchanged.
func QueryFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrTransport) {
		return err
	}
	if IsQuota(err) {
		return &Error{Op: op, Kind: ErrQuotaExceeded, Err: err}
	}
	return &Error{Op: op, Kind: ErrTransport, Err: err}
}

// IsQuota reports whether err signals rate or quota exhaustion
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, llm.ErrRateLimited) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	return quotaText(err.Error())
}

func quotaText(msg string) bool {
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "Resource has been exhausted")
}

// Advisory returns the assistant-visible text that replaces a failed turn
func Advisory(err error) string {
	if errors.Is(err, ErrTransport) {
		return TransportAdvisory
	}
	if IsQuota(err) {
		return QuotaAdvisory
	}
	return TransportAdvisory
}
