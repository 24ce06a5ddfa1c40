package llm

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrRateLimited is wrapped by backends when the provider rejects a call
// for rate or quota reasons
var ErrRateLimited = errors.New("model rate limited")

// WrapRateLimit marks gRPC RESOURCE_EXHAUSTED and HTTP 429 failures with
// ErrRateLimited. Other errors are returned unchanged.
func WrapRateLimit(err error) error {
	if err == nil || errors.Is(err, ErrRateLimited) {
		return err
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}
