package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"conduit/internal/metrics"
	"conduit/pkg/logging"
)

// Manager routes in-memory requests through a priority-ordered middleware
// pipeline to the matching endpoint handler. It also carries a small
// name-to-instance map handlers use for dependency lookup; that map is
// local wiring, not the discovery catalog.
type Manager struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	pipeline  []pipelineEntry
	seq       int
	services  map[string]interface{}

	limiter  *slidingWindowLimiter
	validate *validator.Validate
	metrics  *metrics.Metrics

	handlerTimeout  time.Duration
	rateLimit       int
	rateLimitWindow time.Duration

	requestsProcessed atomic.Int64
	running           bool
	startedAt         time.Time
}

type pipelineEntry struct {
	mw       RequestMiddleware
	priority int
	seq      int
	enabled  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics wires the prometheus instrument set into the gateway.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Manager) {
		g.metrics = m
	}
}

// WithHandlerTimeout bounds endpoint handler execution. Handlers that
// overrun produce a 504 envelope.
func WithHandlerTimeout(d time.Duration) Option {
	return func(g *Manager) {
		g.handlerTimeout = d
	}
}

// New creates a gateway with the default pipeline installed: logging,
// then authentication, then rate limiting, in ascending priority.
func New(opts ...Option) *Manager {
	g := &Manager{
		endpoints:       make(map[string]*Endpoint),
		services:        make(map[string]interface{}),
		limiter:         newSlidingWindowLimiter(),
		validate:        validator.New(),
		handlerTimeout:  30 * time.Second,
		rateLimit:       defaultRateLimit,
		rateLimitWindow: defaultRateLimitWindow,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.AddMiddleware(loggingMiddleware{}, PriorityLogging)
	g.AddMiddleware(authMiddleware{}, PriorityAuth)
	g.AddMiddleware(rateLimitMiddleware{gateway: g}, PriorityRateLimit)

	return g
}

// SetHandlerTimeout adjusts the per-request handler timeout. Call it
// before traffic arrives.
func (g *Manager) SetHandlerTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlerTimeout = d
}

// SetRateLimitDefaults adjusts the default sliding-window policy used
// when an endpoint carries no override. Call it before traffic arrives.
func (g *Manager) SetRateLimitDefaults(limit int, window time.Duration) {
	if limit <= 0 || window <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rateLimit = limit
	g.rateLimitWindow = window
}

func (g *Manager) rateLimitDefaults() (int, time.Duration) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rateLimit, g.rateLimitWindow
}

func endpointKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// AddEndpoint registers an endpoint. A duplicate (method, path) key is a
// hard rejection; the original registration stays active.
func (g *Manager) AddEndpoint(ep Endpoint) error {
	if err := g.validate.Struct(ep); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if ep.Handler == nil {
		return fmt.Errorf("endpoint %s %s has no handler", ep.Method, ep.Path)
	}

	key := endpointKey(ep.Method, ep.Path)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.endpoints[key]; exists {
		return fmt.Errorf("%s %s: %w", ep.Method, ep.Path, ErrDuplicateEndpoint)
	}
	g.endpoints[key] = &ep

	logging.Info("Gateway", "Registered endpoint %s %s", strings.ToUpper(ep.Method), ep.Path)
	return nil
}

// AddMiddleware inserts a stage into the pipeline. The pipeline is kept
// sorted ascending by priority; ties preserve insertion order.
func (g *Manager) AddMiddleware(mw RequestMiddleware, priority int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	g.pipeline = append(g.pipeline, pipelineEntry{
		mw:       mw,
		priority: priority,
		seq:      g.seq,
		enabled:  true,
	})
	sort.SliceStable(g.pipeline, func(i, j int) bool {
		if g.pipeline[i].priority != g.pipeline[j].priority {
			return g.pipeline[i].priority < g.pipeline[j].priority
		}
		return g.pipeline[i].seq < g.pipeline[j].seq
	})

	logging.Debug("Gateway", "Added middleware %s (priority %d)", mw.Name(), priority)
}

// SetMiddlewareEnabled toggles one pipeline stage by name. Returns false
// when no stage carries the name.
func (g *Manager) SetMiddlewareEnabled(name string, enabled bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.pipeline {
		if g.pipeline[i].mw.Name() == name {
			g.pipeline[i].enabled = enabled
			return true
		}
	}
	return false
}

// Handle routes one request. It always returns an envelope: unknown
// endpoints produce a 404, pipeline rejections a 4xx, handler failures a
// 5xx. No error ever escapes to the caller.
func (g *Manager) Handle(ctx context.Context, req *Request) *Response {
	g.requestsProcessed.Add(1)

	g.mu.RLock()
	ep, found := g.endpoints[endpointKey(req.Method, req.Path)]
	stages := make([]pipelineEntry, 0, len(g.pipeline))
	for _, entry := range g.pipeline {
		if entry.enabled {
			stages = append(stages, entry)
		}
	}
	g.mu.RUnlock()

	if !found {
		g.observe(req, 404, 0)
		return &Response{
			Success:    false,
			Error:      "Endpoint not found",
			StatusCode: 404,
		}
	}

	rc := &RequestContext{
		Request:  req,
		Endpoint: ep,
		Start:    time.Now(),
	}

	for _, entry := range stages {
		if err := entry.mw.Process(ctx, rc); err != nil {
			status := statusFor(err)
			logging.Debug("Gateway", "Request %s rejected by %s: %v", rc.RequestID, entry.mw.Name(), err)
			return g.finish(rc, &Response{
				Success:    false,
				Error:      err.Error(),
				StatusCode: status,
			})
		}
	}

	data, err := g.dispatch(ctx, rc)
	if err != nil {
		status := 500
		if errors.Is(err, context.DeadlineExceeded) {
			status = 504
		}
		logging.Error("Gateway", err, "Handler failed for %s %s (request %s)",
			req.Method, req.Path, rc.RequestID)
		return g.finish(rc, &Response{
			Success:    false,
			Error:      err.Error(),
			StatusCode: status,
		})
	}

	return g.finish(rc, &Response{
		Success:    true,
		Data:       data,
		StatusCode: 200,
	})
}

// dispatch runs the endpoint handler under the configured timeout, with
// panic recovery. The timeout wrapper guards non-cooperative handlers by
// running them on their own goroutine.
func (g *Manager) dispatch(ctx context.Context, rc *RequestContext) (interface{}, error) {
	g.mu.RLock()
	timeout := g.handlerTimeout
	g.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data interface{}
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		data, err := rc.Endpoint.Handler(ctx, rc)
		done <- result{data: data, err: err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// finish stamps the envelope with the request id and duration, and
// records request metrics.
func (g *Manager) finish(rc *RequestContext, resp *Response) *Response {
	resp.RequestID = rc.RequestID
	resp.Duration = time.Since(rc.Start).Seconds()
	g.observe(rc.Request, resp.StatusCode, resp.Duration)
	return resp
}

func (g *Manager) observe(req *Request, status int, duration float64) {
	if g.metrics == nil {
		return
	}
	g.metrics.RequestsTotal.WithLabelValues(req.Method, req.Path, strconv.Itoa(status)).Inc()
	if duration > 0 {
		g.metrics.RequestDuration.WithLabelValues(req.Method, req.Path).Observe(duration)
	}
}

// RegisterService stores a dependency handle for handlers. Registering
// an existing name overwrites it.
func (g *Manager) RegisterService(name string, instance interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.services[name] = instance
}

// Service looks up a dependency handle. A missing name is an error,
// unlike the discovery registry's soft lookups.
func (g *Manager) Service(name string) (interface{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	instance, ok := g.services[name]
	if !ok {
		return nil, fmt.Errorf("service %s: %w", name, ErrServiceNotFound)
	}
	return instance, nil
}

// Endpoints returns a snapshot of all registered endpoints.
func (g *Manager) Endpoints() []Endpoint {
	g.mu.RLock()
	defer g.mu.RUnlock()
	result := make([]Endpoint, 0, len(g.endpoints))
	for _, ep := range g.endpoints {
		result = append(result, *ep)
	}
	return result
}

// EndpointCount returns the number of registered endpoints.
func (g *Manager) EndpointCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.endpoints)
}

// RequestsProcessed returns the total number of requests seen.
func (g *Manager) RequestsProcessed() int64 {
	return g.requestsProcessed.Load()
}

// Start marks the gateway running.
func (g *Manager) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return nil
	}
	g.running = true
	g.startedAt = time.Now()
	logging.Info("Gateway", "Started with %d endpoints", len(g.endpoints))
	return nil
}

// Stop marks the gateway stopped and clears the rate-limit windows.
func (g *Manager) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return
	}
	g.running = false
	g.limiter.Reset()
	logging.Info("Gateway", "Stopped")
}

// Running reports whether the gateway has been started.
func (g *Manager) Running() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.running
}
