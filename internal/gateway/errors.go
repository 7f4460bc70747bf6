package gateway

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateEndpoint is returned by AddEndpoint when the
	// (method, path) key is already taken. Unlike the service registry,
	// the endpoint table never replaces on collision.
	ErrDuplicateEndpoint = errors.New("endpoint already registered")

	// ErrServiceNotFound is returned by Service for names missing from
	// the gateway's local dependency map.
	ErrServiceNotFound = errors.New("service not found")
)

// AuthError rejects a request to an auth-requiring endpoint that carries
// no valid credentials.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication required: %s", e.Reason)
}

// RateLimitError rejects a request that exceeded its sliding window.
type RateLimitError struct {
	Limit  int
	Window time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.Limit, e.Window)
}

// statusFor maps a pipeline error onto the envelope status code.
func statusFor(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return 401
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return 429
	}
	return 400
}
