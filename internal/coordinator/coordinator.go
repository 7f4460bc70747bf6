package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"conduit/internal/config"
	"conduit/internal/gateway"
	"conduit/internal/metrics"
	"conduit/internal/middleware"
	"conduit/internal/registry"
	"conduit/pkg/logging"
)

// Status is the coordinator lifecycle state.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// StatusCallback observes coordinator status transitions.
type StatusCallback func(old, new Status)

// ErrorCallback observes component failures.
type ErrorCallback func(component string, err error)

// Metrics is the periodically recomputed, process-wide counter snapshot
// served by /api/metrics.
type Metrics struct {
	UptimeSeconds    float64   `json:"uptimeSeconds"`
	TotalRequests    int64     `json:"totalRequestsProcessed"`
	TotalPackets     int64     `json:"totalDataPacketsProcessed"`
	ActiveServices   int       `json:"activeServices"`
	HealthyServices  int       `json:"healthyServices"`
	MiddlewareChains int       `json:"middlewareChainsActive"`
	APIEndpoints     int       `json:"apiEndpointsRegistered"`
	ErrorCount       int64     `json:"errorCount"`
	LastActivity     time.Time `json:"lastActivity"`
}

// Coordinator owns one instance of each infrastructure component and
// manages their combined lifecycle. It is the single entry point for
// external callers.
type Coordinator struct {
	cfg          *config.Manager
	registry     *registry.Registry
	orchestrator *middleware.Orchestrator
	gateway      *gateway.Manager
	prom         *metrics.Registry

	mu        sync.RWMutex
	status    Status
	startedAt time.Time
	selfID    string

	statusCallbacks []StatusCallback
	errorCallbacks  []ErrorCallback

	totalRequests atomic.Int64
	totalPackets  atomic.Int64
	errorCount    atomic.Int64
	lastActivity  atomic.Int64 // unix nanos

	// Zero values mean "take the config file value at Start"; the
	// WithX options pin them instead.
	metricsInterval time.Duration
	healthInterval  time.Duration

	cancelLoops context.CancelFunc
	loopWG          sync.WaitGroup
	inflight        sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetricsInterval overrides the snapshot recomputation interval.
// The config file value is ignored for this coordinator.
func WithMetricsInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		c.metricsInterval = d
	}
}

// WithHealthCheckInterval overrides the registry probe interval.
// The config file value is ignored for this coordinator.
func WithHealthCheckInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		c.healthInterval = d
	}
}

// New assembles a coordinator around the given config file path. All
// components are constructed immediately; nothing runs until Start,
// which loads the config file and applies its values to the components
// before bringing them up.
func New(configPath string, opts ...Option) *Coordinator {
	prom := metrics.NewRegistry()

	c := &Coordinator{
		cfg:          config.NewManager(configPath),
		prom:         prom,
		status:       StatusStopped,
		registry:     registry.New(registry.WithMetrics(prom.Metrics)),
		orchestrator: middleware.New(middleware.WithMetrics(prom.Metrics)),
		gateway:      gateway.New(gateway.WithMetrics(prom.Metrics)),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.registerDefaultEndpoints()
	c.registerDefaultChain()

	return c
}

// OnStatusChange registers a callback invoked synchronously on every
// status transition. Callback panics are contained.
func (c *Coordinator) OnStatusChange(cb StatusCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusCallbacks = append(c.statusCallbacks, cb)
}

// OnError registers a callback invoked synchronously on component
// failures. Callback panics are contained.
func (c *Coordinator) OnError(cb ErrorCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCallbacks = append(c.errorCallbacks, cb)
}

// Status returns the current lifecycle state.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Coordinator) setStatus(status Status) {
	c.mu.Lock()
	old := c.status
	c.status = status
	callbacks := make([]StatusCallback, len(c.statusCallbacks))
	copy(callbacks, c.statusCallbacks)
	c.mu.Unlock()

	if old == status {
		return
	}
	logging.Info("Coordinator", "Status %s -> %s", old, status)
	for _, cb := range callbacks {
		invokeStatusCallback(cb, old, status)
	}
}

func invokeStatusCallback(cb StatusCallback, old, new Status) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Coordinator", "Status callback panicked: %v", r)
		}
	}()
	cb(old, new)
}

func (c *Coordinator) fireError(component string, err error) {
	c.errorCount.Add(1)
	c.prom.Metrics.ErrorsTotal.WithLabelValues(component).Inc()

	c.mu.RLock()
	callbacks := make([]ErrorCallback, len(c.errorCallbacks))
	copy(callbacks, c.errorCallbacks)
	c.mu.RUnlock()

	for _, cb := range callbacks {
		invokeErrorCallback(cb, component, err)
	}
}

func invokeErrorCallback(cb ErrorCallback, component string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Coordinator", "Error callback panicked: %v", r)
		}
	}()
	cb(component, err)
}

// Start brings the components up in dependency order: registry,
// orchestrator, gateway, config watcher, then the metrics loop. The
// coordinator registers itself as a discoverable service. Any failure
// sets the error status, fires error callbacks, and is returned.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.Status() == StatusRunning {
		return nil
	}
	c.setStatus(StatusStarting)

	fail := func(component string, err error) error {
		wrapped := fmt.Errorf("starting %s: %w", component, err)
		c.fireError(component, wrapped)
		c.setStatus(StatusError)
		return wrapped
	}

	if err := c.cfg.Load(); err != nil {
		return fail("config", err)
	}
	c.applyConfig()

	if err := c.registry.Start(ctx); err != nil {
		return fail("registry", err)
	}
	if err := c.orchestrator.Start(ctx); err != nil {
		return fail("orchestrator", err)
	}
	if err := c.gateway.Start(ctx); err != nil {
		return fail("gateway", err)
	}
	if err := c.cfg.StartWatching(); err != nil {
		return fail("config-watcher", err)
	}

	if err := c.registerSelf(); err != nil {
		return fail("registry", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancelLoops = cancel
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.loopWG.Add(1)
	go c.metricsLoop(loopCtx)

	c.touch()
	c.setStatus(StatusRunning)
	logging.Info("Coordinator", "Integration infrastructure running")
	return nil
}

// applyConfig pushes loaded config values into the components. It runs
// after Load and before the components start; values pinned through
// options win over the file.
func (c *Coordinator) applyConfig() {
	if c.healthInterval == 0 {
		c.healthInterval = time.Duration(c.cfg.GetInt("registry.health_interval_seconds", 30)) * time.Second
	}
	c.registry.SetHealthCheckInterval(c.healthInterval)
	c.registry.SetProbeTimeout(
		time.Duration(c.cfg.GetInt("registry.probe_timeout_seconds", 5)) * time.Second)

	if c.metricsInterval == 0 {
		c.metricsInterval = time.Duration(c.cfg.GetInt("coordinator.metrics_interval_seconds", 30)) * time.Second
	}

	c.gateway.SetHandlerTimeout(
		time.Duration(c.cfg.GetInt("gateway.handler_timeout_seconds", 30)) * time.Second)
	c.gateway.SetRateLimitDefaults(
		c.cfg.GetInt("gateway.rate_limit.limit", 100),
		time.Duration(c.cfg.GetInt("gateway.rate_limit.window_seconds", 60))*time.Second)
}

// Stop tears everything down in reverse order, waiting for the metrics
// loop and in-flight requests to drain first.
func (c *Coordinator) Stop() error {
	status := c.Status()
	if status == StatusStopped || status == StatusStopping {
		return nil
	}
	c.setStatus(StatusStopping)

	c.mu.Lock()
	cancel := c.cancelLoops
	c.cancelLoops = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.loopWG.Wait()
	c.inflight.Wait()

	c.cfg.StopWatching()
	c.gateway.Stop()
	c.orchestrator.Stop()
	c.registry.Stop()
	c.cfg.Cleanup()

	c.setStatus(StatusStopped)
	logging.Info("Coordinator", "Integration infrastructure stopped")
	return nil
}

// registerSelf makes the coordinator discoverable through its own
// catalog. Re-registration on restart replaces the old entry.
func (c *Coordinator) registerSelf() error {
	id, err := c.registry.Register(registry.ServiceInfo{
		Name: "conduit-coordinator",
		Type: registry.TypeIntegration,
		Metadata: registry.ServiceMetadata{
			Description:  "integration coordinator",
			Tags:         registry.NewSet("core"),
			Capabilities: registry.NewSet("api-routing", "data-pipeline", "discovery"),
		},
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.selfID = id
	c.mu.Unlock()

	// The coordinator is trivially reachable from itself.
	c.registry.UpdateStatus(id, registry.StatusHealthy)
	return nil
}

// registerDefaultChain installs a catch-all routing chain so packet
// producers can omit the chain name.
func (c *Coordinator) registerDefaultChain() {
	c.orchestrator.RegisterMiddleware(middleware.NewRouting("default-router", []middleware.RouteRule{
		{Route: "default", Tags: []string{"unclassified"}},
	}))
	if err := c.orchestrator.CreateChain(middleware.Chain{
		Name:        "default",
		Middlewares: []string{"default-router"},
		Description: "catch-all routing for untyped packets",
	}); err != nil {
		logging.Error("Coordinator", err, "Failed to create default chain")
	}
}

func (c *Coordinator) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// ProcessAPIRequest is the external entry point for request traffic.
// Anything that escapes the gateway is converted into a 500 envelope;
// the caller never sees an error.
func (c *Coordinator) ProcessAPIRequest(ctx context.Context, req *gateway.Request) (resp *gateway.Response) {
	c.inflight.Add(1)
	defer c.inflight.Done()

	c.totalRequests.Add(1)
	c.touch()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("request processing panic: %v", r)
			c.fireError("gateway", err)
			resp = &gateway.Response{
				Success:    false,
				Error:      err.Error(),
				StatusCode: 500,
			}
		}
	}()

	resp = c.gateway.Handle(ctx, req)
	if !resp.Success && resp.StatusCode >= 500 {
		c.fireError("gateway", fmt.Errorf("request %s failed: %s", resp.RequestID, resp.Error))
	}
	return resp
}

// ProcessDataPacket is the external entry point for packet traffic. On
// failure the packet comes back annotated rather than an error: the
// metadata carries the failure details.
func (c *Coordinator) ProcessDataPacket(ctx context.Context, packet *middleware.DataPacket, chainName string) *middleware.DataPacket {
	c.inflight.Add(1)
	defer c.inflight.Done()

	c.totalPackets.Add(1)
	c.touch()

	processed, err := c.orchestrator.ProcessPacket(ctx, packet, chainName)
	if err != nil {
		if processed.Metadata == nil {
			processed.Metadata = make(map[string]interface{})
		}
		if _, ok := processed.Metadata["error"]; !ok {
			processed.Metadata["error"] = err.Error()
		}
		processed.Metadata["processing_failed"] = true
		c.fireError("orchestrator", err)
	}
	return processed
}

// RegisterService adds a service to the discovery catalog.
func (c *Coordinator) RegisterService(info registry.ServiceInfo) (string, error) {
	c.touch()
	id, err := c.registry.Register(info)
	if err != nil {
		c.fireError("registry", err)
		return "", err
	}
	return id, nil
}

// GetSystemHealth aggregates component health. The overall flag is the
// conjunction of the three managed components; the config manager is
// always considered healthy.
func (c *Coordinator) GetSystemHealth() map[string]interface{} {
	gatewayUp := c.gateway.Running()
	orchestratorUp := c.orchestrator.Running()
	registryUp := c.registry.Running()

	return map[string]interface{}{
		"healthy": gatewayUp && orchestratorUp && registryUp,
		"status":  string(c.Status()),
		"components": map[string]interface{}{
			"gateway":      gatewayUp,
			"orchestrator": orchestratorUp,
			"registry":     registryUp,
			"config":       true,
		},
	}
}

// Metrics returns the current snapshot, recomputing it on demand.
func (c *Coordinator) Metrics() Metrics {
	return c.collectSnapshot()
}

func (c *Coordinator) metricsLoop(ctx context.Context) {
	defer c.loopWG.Done()

	ticker := time.NewTicker(c.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := c.collectSnapshot()
			logging.Debug("Coordinator", "Metrics: %d requests, %d packets, %d/%d services healthy",
				snapshot.TotalRequests, snapshot.TotalPackets,
				snapshot.HealthyServices, snapshot.ActiveServices)
		}
	}
}

func (c *Coordinator) collectSnapshot() Metrics {
	c.mu.RLock()
	startedAt := c.startedAt
	running := c.status == StatusRunning
	c.mu.RUnlock()

	var uptime float64
	if running && !startedAt.IsZero() {
		uptime = time.Since(startedAt).Seconds()
	}

	var lastActivity time.Time
	if nanos := c.lastActivity.Load(); nanos > 0 {
		lastActivity = time.Unix(0, nanos)
	}

	return Metrics{
		UptimeSeconds:    uptime,
		TotalRequests:    c.totalRequests.Load(),
		TotalPackets:     c.totalPackets.Load(),
		ActiveServices:   c.registry.Count(),
		HealthyServices:  len(c.registry.Healthy()),
		MiddlewareChains: c.orchestrator.Metrics().ActiveChains,
		APIEndpoints:     c.gateway.EndpointCount(),
		ErrorCount:       c.errorCount.Load(),
		LastActivity:     lastActivity,
	}
}

// Registry exposes the service catalog.
func (c *Coordinator) Registry() *registry.Registry { return c.registry }

// Gateway exposes the request router.
func (c *Coordinator) Gateway() *gateway.Manager { return c.gateway }

// Orchestrator exposes the packet processor.
func (c *Coordinator) Orchestrator() *middleware.Orchestrator { return c.orchestrator }

// Config exposes the configuration manager.
func (c *Coordinator) Config() *config.Manager { return c.cfg }

// PrometheusRegistry exposes the metrics registry for exposition.
func (c *Coordinator) PrometheusRegistry() *metrics.Registry { return c.prom }
