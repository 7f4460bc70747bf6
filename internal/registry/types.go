package registry

import (
	"time"
)

// ServiceType categorizes a registered service.
type ServiceType string

const (
	TypeAPI         ServiceType = "api"
	TypeDatabase    ServiceType = "database"
	TypeIntegration ServiceType = "integration"
	TypeMessaging   ServiceType = "messaging"
	TypeStorage     ServiceType = "storage"
)

// ServiceStatus is the health status of a service as determined by the
// health-check loop (or an explicit UpdateStatus call).
type ServiceStatus string

const (
	StatusUnknown   ServiceStatus = "unknown"
	StatusHealthy   ServiceStatus = "healthy"
	StatusUnhealthy ServiceStatus = "unhealthy"
	StatusError     ServiceStatus = "error"
)

// gaugeValue maps a status onto the registry's prometheus status gauge.
func (s ServiceStatus) gaugeValue() float64 {
	switch s {
	case StatusHealthy:
		return 1
	case StatusUnhealthy:
		return 2
	case StatusError:
		return 3
	default:
		return 0
	}
}

// ServiceEndpoint describes one reachable address of a service. When
// HealthCheckPath is set the health loop probes it with an HTTP GET,
// otherwise it falls back to a plain TCP connect.
type ServiceEndpoint struct {
	Host            string `json:"host" validate:"required"`
	Port            int    `json:"port" validate:"required,gt=0,lte=65535"`
	Protocol        string `json:"protocol,omitempty"`
	HealthCheckPath string `json:"healthCheckPath,omitempty"`
}

// ServiceMetadata carries descriptive attributes used by discovery
// queries. Tags and Capabilities have set semantics.
type ServiceMetadata struct {
	Version      string              `json:"version,omitempty"`
	Description  string              `json:"description,omitempty"`
	Tags         map[string]struct{} `json:"tags,omitempty"`
	Capabilities map[string]struct{} `json:"capabilities,omitempty"`
}

// ServiceInfo is one entry in the service catalog. Name is unique in the
// registry; ID is assigned at registration time.
type ServiceInfo struct {
	ID           string            `json:"id"`
	Name         string            `json:"name" validate:"required"`
	Type         ServiceType       `json:"type" validate:"required"`
	Endpoints    []ServiceEndpoint `json:"endpoints,omitempty" validate:"dive"`
	Metadata     ServiceMetadata   `json:"metadata"`
	Status       ServiceStatus     `json:"status"`
	RegisteredAt time.Time         `json:"registeredAt"`
	LastChecked  *time.Time        `json:"lastChecked,omitempty"`
}

// Query selects services by attribute. All supplied filters must match;
// tags and capabilities use set-intersection semantics. The zero Query
// matches everything.
type Query struct {
	Type         ServiceType
	Tags         []string
	Capabilities []string
}

// matches reports whether info satisfies every filter in the query.
func (q Query) matches(info *ServiceInfo) bool {
	if q.Type != "" && info.Type != q.Type {
		return false
	}
	for _, tag := range q.Tags {
		if _, ok := info.Metadata.Tags[tag]; !ok {
			return false
		}
	}
	for _, cap := range q.Capabilities {
		if _, ok := info.Metadata.Capabilities[cap]; !ok {
			return false
		}
	}
	return true
}

// NewSet builds a string set from its arguments. Convenience for
// populating ServiceMetadata tags and capabilities.
func NewSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
