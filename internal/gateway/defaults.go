package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"conduit/pkg/logging"
)

// Default pipeline priorities. The pipeline sorts ascending, so logging
// runs first and rate limiting last.
const (
	PriorityLogging   = 10
	PriorityAuth      = 20
	PriorityRateLimit = 30
)

const (
	defaultRateLimit       = 100
	defaultRateLimitWindow = 60 * time.Second

	// Client bucket used when the request carries no client id.
	anonymousClient = "anonymous"
)

// loggingMiddleware assigns the request id and logs the inbound request.
// It runs first so every later stage and the handler see the id.
type loggingMiddleware struct{}

func (loggingMiddleware) Name() string { return "logging" }

func (loggingMiddleware) Process(ctx context.Context, rc *RequestContext) error {
	rc.RequestID = uuid.NewString()
	logging.Debug("Gateway", "Request %s: %s %s (client %s)",
		rc.RequestID, rc.Request.Method, rc.Request.Path, rc.Request.ClientID)
	return nil
}

// authMiddleware enforces bearer-token auth on endpoints that require
// it. Endpoints without RequiresAuth pass through untouched.
type authMiddleware struct{}

func (authMiddleware) Name() string { return "authentication" }

func (authMiddleware) Process(ctx context.Context, rc *RequestContext) error {
	if !rc.Endpoint.RequiresAuth {
		return nil
	}

	header := rc.Request.Header("Authorization")
	if header == "" {
		return &AuthError{Reason: "missing Authorization header"}
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return &AuthError{Reason: "expected bearer token"}
	}
	if strings.TrimSpace(token) == "" {
		return &AuthError{Reason: "empty bearer token"}
	}
	return nil
}

// rateLimitMiddleware applies the sliding-window check keyed by
// (client id, endpoint path). The default policy comes from the owning
// manager; endpoints may override it.
type rateLimitMiddleware struct {
	gateway *Manager
}

func (rateLimitMiddleware) Name() string { return "ratelimit" }

func (m rateLimitMiddleware) Process(ctx context.Context, rc *RequestContext) error {
	limit, window := m.gateway.rateLimitDefaults()
	if rc.Endpoint.RateLimit != nil {
		if rc.Endpoint.RateLimit.Limit > 0 {
			limit = rc.Endpoint.RateLimit.Limit
		}
		if rc.Endpoint.RateLimit.Window > 0 {
			window = rc.Endpoint.RateLimit.Window
		}
	}

	clientID := rc.Request.ClientID
	if clientID == "" {
		clientID = anonymousClient
	}

	if !m.gateway.limiter.Allow(clientID, rc.Endpoint.Path, limit, window) {
		if m.gateway.metrics != nil {
			m.gateway.metrics.RateLimitRejected.Inc()
		}
		return &RateLimitError{Limit: limit, Window: window}
	}
	return nil
}
