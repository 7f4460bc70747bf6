package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"conduit/internal/metrics"
	"conduit/pkg/logging"
)

// Registry is the live service catalog. Entries are dual-indexed by id
// and name; name is the uniqueness key. Registering a name that already
// exists replaces the previous entry, it never fails.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*ServiceInfo
	byName map[string]string // name -> id

	validate *validator.Validate
	metrics  *metrics.Metrics

	checker *healthChecker
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics wires the prometheus instrument set into the registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithHealthCheckInterval overrides the default probe interval.
func WithHealthCheckInterval(interval time.Duration) Option {
	return func(r *Registry) {
		r.SetHealthCheckInterval(interval)
	}
}

// WithProbeTimeout overrides the per-probe timeout.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(r *Registry) {
		r.SetProbeTimeout(timeout)
	}
}

// SetHealthCheckInterval adjusts the probe interval. It is ignored once
// the health-check loop is running.
func (r *Registry) SetHealthCheckInterval(interval time.Duration) {
	c := r.checker
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || interval <= 0 {
		return
	}
	c.interval = interval
}

// SetProbeTimeout adjusts the per-probe timeout. It is ignored once the
// health-check loop is running.
func (r *Registry) SetProbeTimeout(timeout time.Duration) {
	c := r.checker
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || timeout <= 0 {
		return
	}
	c.timeout = timeout
	c.client.Timeout = timeout
	c.dialer.Timeout = timeout
}

// New creates an empty registry. Start must be called to begin health
// checking.
func New(opts ...Option) *Registry {
	r := &Registry{
		byID:     make(map[string]*ServiceInfo),
		byName:   make(map[string]string),
		validate: validator.New(),
	}
	r.checker = newHealthChecker(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts a service into the catalog and returns its assigned
// id. A service with the same name atomically replaces the previous
// entry: the old id disappears from both indexes. New entries always
// start with StatusUnknown; they are not reported healthy until the
// health loop confirms them.
func (r *Registry) Register(info ServiceInfo) (string, error) {
	if err := r.validate.Struct(info); err != nil {
		return "", fmt.Errorf("invalid service info: %w", err)
	}

	info.ID = uuid.NewString()
	info.Status = StatusUnknown
	info.RegisteredAt = time.Now()
	info.LastChecked = nil

	r.mu.Lock()
	if oldID, exists := r.byName[info.Name]; exists {
		delete(r.byID, oldID)
		logging.Debug("Registry", "Replacing service %s (old id %s)", info.Name, oldID)
	}
	r.byID[info.ID] = &info
	r.byName[info.Name] = info.ID
	count := len(r.byID)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegisteredServices.Set(float64(count))
		r.metrics.ServiceStatus.WithLabelValues(info.Name).Set(info.Status.gaugeValue())
	}

	logging.Info("Registry", "Registered service %s (%s, id %s)", info.Name, info.Type, info.ID)
	return info.ID, nil
}

// Unregister removes a service by id. Returns false when the id is not
// in the catalog.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	info, exists := r.byID[id]
	if !exists {
		r.mu.Unlock()
		return false
	}
	delete(r.byID, id)
	// Only drop the name index if it still points at this id; a replace
	// may already have remapped the name.
	if r.byName[info.Name] == id {
		delete(r.byName, info.Name)
	}
	count := len(r.byID)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegisteredServices.Set(float64(count))
		r.metrics.ServiceStatus.DeleteLabelValues(info.Name)
		r.metrics.HealthCheckStatus.DeleteLabelValues(info.Name)
	}

	logging.Info("Registry", "Unregistered service %s (id %s)", info.Name, id)
	return true
}

// GetByID returns a copy of the service with the given id.
func (r *Registry) GetByID(id string) (ServiceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, exists := r.byID[id]
	if !exists {
		return ServiceInfo{}, false
	}
	return *info, true
}

// GetByName returns a copy of the service with the given name.
func (r *Registry) GetByName(name string) (ServiceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, exists := r.byName[name]
	if !exists {
		return ServiceInfo{}, false
	}
	return *r.byID[id], true
}

// Find returns all services matching every filter in the query. The
// zero query returns the whole catalog.
func (r *Registry) Find(q Query) []ServiceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ServiceInfo, 0, len(r.byID))
	for _, info := range r.byID {
		if q.matches(info) {
			result = append(result, *info)
		}
	}
	return result
}

// Healthy returns all services whose last probe succeeded. Freshly
// registered services (StatusUnknown) are excluded.
func (r *Registry) Healthy() []ServiceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []ServiceInfo
	for _, info := range r.byID {
		if info.Status == StatusHealthy {
			result = append(result, *info)
		}
	}
	return result
}

// Count returns the number of catalog entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// UpdateStatus sets the status of a service by id. Returns false when
// the id is unknown. Used by the health loop and by callers that learn
// about a service's health out of band.
func (r *Registry) UpdateStatus(id string, status ServiceStatus) bool {
	now := time.Now()

	r.mu.Lock()
	info, exists := r.byID[id]
	if !exists {
		r.mu.Unlock()
		return false
	}
	old := info.Status
	info.Status = status
	info.LastChecked = &now
	name := info.Name
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ServiceStatus.WithLabelValues(name).Set(status.gaugeValue())
		healthy := 0.0
		if status == StatusHealthy {
			healthy = 1.0
		}
		r.metrics.HealthCheckStatus.WithLabelValues(name).Set(healthy)
	}

	if old != status {
		logging.Info("Registry", "Service %s status %s -> %s", name, old, status)
	}
	return true
}
