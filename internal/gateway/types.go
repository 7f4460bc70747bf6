package gateway

import (
	"context"
	"time"
)

// Request is the in-memory request envelope consumed by the gateway.
// There is no wire transport; producers hand these structs over directly.
type Request struct {
	Method   string                 `json:"method"`
	Path     string                 `json:"path"`
	Headers  map[string]string      `json:"headers,omitempty"`
	Body     interface{}            `json:"body,omitempty"`
	ClientID string                 `json:"client_id,omitempty"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// Header returns a header value, or "" when absent.
func (r *Request) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[name]
}

// Response is the structured envelope produced for every request.
// Processing failures surface here, never as returned errors.
type Response struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Duration   float64     `json:"duration,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
	StatusCode int         `json:"status_code"`
}

// RateLimit is a per-endpoint override of the default sliding-window
// policy.
type RateLimit struct {
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
}

// HandlerFunc is the endpoint dispatch contract.
type HandlerFunc func(ctx context.Context, rc *RequestContext) (interface{}, error)

// Endpoint maps an (HTTP method, path) pair to a handler. The pair is
// the uniqueness key; registering a duplicate is a hard rejection.
type Endpoint struct {
	Method       string      `json:"method" validate:"required"`
	Path         string      `json:"path" validate:"required,startswith=/"`
	Handler      HandlerFunc `json:"-" validate:"-"`
	Description  string      `json:"description,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
	RateLimit    *RateLimit  `json:"rateLimit,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
}

// RequestContext carries one request through the middleware pipeline and
// into the handler. Pipeline stages may mutate the request (inject
// headers, annotate params); the logging stage assigns RequestID.
type RequestContext struct {
	Request   *Request
	Endpoint  *Endpoint
	RequestID string
	Start     time.Time
}

// RequestMiddleware is a pipeline stage. A returned error short-circuits
// the pipeline and is converted into an error envelope.
type RequestMiddleware interface {
	Name() string
	Process(ctx context.Context, rc *RequestContext) error
}
