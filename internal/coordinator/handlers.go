package coordinator

import (
	"context"
	"time"

	"conduit/internal/gateway"
	"conduit/internal/registry"
	"conduit/pkg/logging"
)

// registerDefaultEndpoints installs the coordinator's own thin handlers.
// They read aggregated state only; all heavy lifting stays in the
// components.
func (c *Coordinator) registerDefaultEndpoints() {
	endpoints := []gateway.Endpoint{
		{
			Method:      "GET",
			Path:        "/api/health",
			Handler:     c.handleHealth,
			Description: "aggregated system health",
			Tags:        []string{"system"},
		},
		{
			Method:      "GET",
			Path:        "/api/metrics",
			Handler:     c.handleMetrics,
			Description: "integration metrics snapshot",
			Tags:        []string{"system"},
		},
		{
			Method:      "GET",
			Path:        "/api/config",
			Handler:     c.handleConfig,
			Description: "configuration manager summary",
			Tags:        []string{"system"},
		},
		{
			Method:      "GET",
			Path:        "/api/services",
			Handler:     c.handleServices,
			Description: "service catalog summary",
			Tags:        []string{"system"},
		},
	}

	for _, ep := range endpoints {
		if err := c.gateway.AddEndpoint(ep); err != nil {
			// Only reachable if a caller re-runs registration.
			logging.Error("Coordinator", err, "Failed to register default endpoint %s", ep.Path)
		}
	}
}

func (c *Coordinator) handleHealth(ctx context.Context, rc *gateway.RequestContext) (interface{}, error) {
	health := c.GetSystemHealth()
	health["uptime"] = c.collectSnapshot().UptimeSeconds
	health["timestamp"] = time.Now().UTC()
	return health, nil
}

func (c *Coordinator) handleMetrics(ctx context.Context, rc *gateway.RequestContext) (interface{}, error) {
	return c.Metrics(), nil
}

func (c *Coordinator) handleConfig(ctx context.Context, rc *gateway.RequestContext) (interface{}, error) {
	return c.cfg.Summary(), nil
}

func (c *Coordinator) handleServices(ctx context.Context, rc *gateway.RequestContext) (interface{}, error) {
	services := c.registry.Find(registry.Query{})

	entries := make([]map[string]interface{}, 0, len(services))
	for _, svc := range services {
		entries = append(entries, map[string]interface{}{
			"id":     svc.ID,
			"name":   svc.Name,
			"type":   string(svc.Type),
			"status": string(svc.Status),
		})
	}

	return map[string]interface{}{
		"total":    len(services),
		"healthy":  len(c.registry.Healthy()),
		"services": entries,
	}, nil
}
