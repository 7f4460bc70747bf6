package middleware

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"conduit/internal/metrics"
	"conduit/pkg/logging"
)

// Orchestrator holds the named middleware components and the chains
// composed from them, and runs data packets through a chosen chain.
type Orchestrator struct {
	mu           sync.RWMutex
	components   map[string]Middleware
	chains       map[string]Chain
	defaultChain string

	packetsProcessed atomic.Int64
	packetsFailed    atomic.Int64

	metrics   *metrics.Metrics
	startedAt time.Time
	running   bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics wires the prometheus instrument set into the orchestrator.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an empty orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		components: make(map[string]Middleware),
		chains:     make(map[string]Chain),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start marks the orchestrator running and resets its uptime clock.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}
	o.running = true
	o.startedAt = time.Now()
	logging.Info("Orchestrator", "Started with %d middleware, %d chains",
		len(o.components), len(o.chains))
	return nil
}

// Stop marks the orchestrator stopped. In-flight ProcessPacket calls
// complete normally.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	logging.Info("Orchestrator", "Stopped")
}

// Running reports whether the orchestrator has been started.
func (o *Orchestrator) Running() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// RegisterMiddleware stores a component by name. Re-registering an
// existing name overwrites in place; chains reference names, so they
// pick up the replacement on their next run.
func (o *Orchestrator) RegisterMiddleware(m Middleware) {
	o.mu.Lock()
	_, replaced := o.components[m.Name()]
	o.components[m.Name()] = m
	o.mu.Unlock()

	if replaced {
		logging.Info("Orchestrator", "Replaced middleware %s", m.Name())
	} else {
		logging.Debug("Orchestrator", "Registered middleware %s", m.Name())
	}
}

// CreateChain validates and stores a chain. Every referenced middleware
// must already be registered; on any failure the chain set is left
// untouched. The first chain created becomes the default.
func (o *Orchestrator) CreateChain(chain Chain) error {
	if chain.Name == "" {
		return fmt.Errorf("chain name is required")
	}
	if len(chain.Middlewares) == 0 {
		return fmt.Errorf("chain %s references no middleware", chain.Name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.chains[chain.Name]; exists {
		return fmt.Errorf("chain %s: %w", chain.Name, ErrChainExists)
	}
	for _, name := range chain.Middlewares {
		if _, ok := o.components[name]; !ok {
			return fmt.Errorf("chain %s references %s: %w", chain.Name, name, ErrMiddlewareNotFound)
		}
	}

	o.chains[chain.Name] = chain
	if o.defaultChain == "" {
		o.defaultChain = chain.Name
	}
	if o.metrics != nil {
		o.metrics.ActiveChains.Set(float64(len(o.chains)))
	}

	logging.Info("Orchestrator", "Created chain %s (%d stages)", chain.Name, len(chain.Middlewares))
	return nil
}

// SetDefaultChain selects the chain used when ProcessPacket is called
// without a chain name.
func (o *Orchestrator) SetDefaultChain(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.chains[name]; !ok {
		return fmt.Errorf("chain %s: %w", name, ErrChainNotFound)
	}
	o.defaultChain = name
	return nil
}

// Chains returns the names of all configured chains.
func (o *Orchestrator) Chains() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.chains))
	for name := range o.chains {
		names = append(names, name)
	}
	return names
}

// ProcessPacket threads the packet through the named chain stage by
// stage. An empty chainName selects the default chain. A failing stage
// aborts the run: the error is recorded on the packet's metadata and
// returned alongside the (partially processed) packet. The orchestrator
// itself never fails.
func (o *Orchestrator) ProcessPacket(ctx context.Context, packet *DataPacket, chainName string) (*DataPacket, error) {
	// Callers may hand over a bare struct literal; stages and the
	// failure annotations below assume non-nil maps.
	if packet.Data == nil {
		packet.Data = make(map[string]interface{})
	}
	if packet.Metadata == nil {
		packet.Metadata = make(map[string]interface{})
	}
	if packet.Tags == nil {
		packet.Tags = make(map[string]struct{})
	}

	o.mu.RLock()
	if chainName == "" {
		chainName = o.defaultChain
	}
	if chainName == "" {
		o.mu.RUnlock()
		return packet, ErrNoDefaultChain
	}
	chain, ok := o.chains[chainName]
	if !ok {
		o.mu.RUnlock()
		return packet, fmt.Errorf("chain %s: %w", chainName, ErrChainNotFound)
	}
	// Snapshot the stage instances so a concurrent re-registration
	// cannot change the chain mid-run.
	stages := make([]Middleware, len(chain.Middlewares))
	for i, name := range chain.Middlewares {
		stages[i] = o.components[name]
	}
	o.mu.RUnlock()

	for _, stage := range stages {
		var err error
		packet, err = stage.Process(ctx, packet)
		if err != nil {
			stageErr := &StageError{Stage: stage.Name(), Chain: chainName, Err: err}
			packet.Metadata["error"] = err.Error()
			packet.Metadata["failed_stage"] = stage.Name()

			o.packetsFailed.Add(1)
			if o.metrics != nil {
				o.metrics.PacketsTotal.WithLabelValues(chainName, "error").Inc()
			}
			logging.Warn("Orchestrator", "Packet %s aborted: %v", packet.ID, stageErr)
			return packet, stageErr
		}
	}

	o.packetsProcessed.Add(1)
	if o.metrics != nil {
		o.metrics.PacketsTotal.WithLabelValues(chainName, "ok").Inc()
	}
	logging.Debug("Orchestrator", "Packet %s completed chain %s", packet.ID, chainName)
	return packet, nil
}

// PerformanceMetrics is a point-in-time view of orchestrator activity.
type PerformanceMetrics struct {
	UptimeSeconds        float64 `json:"uptimeSeconds"`
	PacketsProcessed     int64   `json:"packetsProcessed"`
	PacketsFailed        int64   `json:"packetsFailed"`
	RegisteredMiddleware int     `json:"registeredMiddleware"`
	ActiveChains         int     `json:"activeChains"`
}

// Metrics returns current orchestrator counters.
func (o *Orchestrator) Metrics() PerformanceMetrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var uptime float64
	if o.running {
		uptime = time.Since(o.startedAt).Seconds()
	}
	return PerformanceMetrics{
		UptimeSeconds:        uptime,
		PacketsProcessed:     o.packetsProcessed.Load(),
		PacketsFailed:        o.packetsFailed.Load(),
		RegisteredMiddleware: len(o.components),
		ActiveChains:         len(o.chains),
	}
}
