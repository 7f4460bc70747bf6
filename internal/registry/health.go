package registry

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"conduit/pkg/logging"
)

const (
	defaultCheckInterval = 30 * time.Second
	defaultProbeTimeout  = 5 * time.Second

	// Upper bound on concurrent probes per cycle.
	maxConcurrentProbes = 8
)

// healthChecker drives the periodic probe loop for the registry. A
// failed probe marks a service unhealthy, an unexpected condition marks
// it error, success marks it healthy. The loop itself never fails.
type healthChecker struct {
	registry *Registry
	interval time.Duration
	timeout  time.Duration
	client   *http.Client
	dialer   *net.Dialer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func newHealthChecker(r *Registry) *healthChecker {
	return &healthChecker{
		registry: r,
		interval: defaultCheckInterval,
		timeout:  defaultProbeTimeout,
		client:   &http.Client{Timeout: defaultProbeTimeout},
		dialer:   &net.Dialer{Timeout: defaultProbeTimeout},
	}
}

// Start launches the health-check loop. Calling Start on a running
// registry is a no-op.
func (r *Registry) Start(ctx context.Context) error {
	c := r.checker

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(loopCtx)

	logging.Info("Registry", "Health-check loop started (interval %s)", c.interval)
	return nil
}

// Stop terminates the health-check loop and waits for the current cycle
// to finish.
func (r *Registry) Stop() {
	c := r.checker

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
	logging.Info("Registry", "Health-check loop stopped")
}

// Running reports whether the health-check loop is active.
func (r *Registry) Running() bool {
	r.checker.mu.Lock()
	defer r.checker.mu.Unlock()
	return r.checker.running
}

// CheckNow runs one probe cycle immediately, outside the ticker.
func (r *Registry) CheckNow(ctx context.Context) {
	r.checker.checkAll(ctx)
}

func (c *healthChecker) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAll(ctx)
		}
	}
}

// checkAll probes every service with at least one endpoint. Probes run
// concurrently but bounded; a probe failure only mutates the service's
// status, never the loop.
func (c *healthChecker) checkAll(ctx context.Context) {
	services := c.registry.Find(Query{})

	g, probeCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)

	for _, svc := range services {
		if len(svc.Endpoints) == 0 {
			continue
		}
		svc := svc
		g.Go(func() error {
			status := c.probe(probeCtx, svc)
			c.registry.UpdateStatus(svc.ID, status)
			return nil
		})
	}

	// Probe goroutines always return nil; Wait is just a join point.
	_ = g.Wait()
}

// probe checks all endpoints of one service. Every endpoint must answer
// for the service to count as healthy.
func (c *healthChecker) probe(ctx context.Context, svc ServiceInfo) ServiceStatus {
	for _, ep := range svc.Endpoints {
		status := c.probeEndpoint(ctx, svc.Name, ep)
		if status != StatusHealthy {
			return status
		}
	}
	return StatusHealthy
}

func (c *healthChecker) probeEndpoint(ctx context.Context, name string, ep ServiceEndpoint) ServiceStatus {
	addr := net.JoinHostPort(ep.Host, fmt.Sprintf("%d", ep.Port))

	if ep.HealthCheckPath != "" {
		path := ep.HealthCheckPath
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		url := fmt.Sprintf("http://%s%s", addr, path)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			// Malformed probe target, not a transport failure.
			logging.Error("Registry", err, "Invalid health-check URL for %s", name)
			return StatusError
		}

		resp, err := c.client.Do(req)
		if err != nil {
			logging.Debug("Registry", "HTTP probe failed for %s at %s: %v", name, url, err)
			return StatusUnhealthy
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return StatusHealthy
		}
		logging.Debug("Registry", "HTTP probe for %s returned %d", name, resp.StatusCode)
		return StatusUnhealthy
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logging.Debug("Registry", "TCP probe failed for %s at %s: %v", name, addr, err)
		return StatusUnhealthy
	}
	conn.Close()
	return StatusHealthy
}
