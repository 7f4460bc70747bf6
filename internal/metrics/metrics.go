package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the platform-level instruments shared by all conduit
// components. Domain counters live here; the coordinator's periodic
// snapshot is derived from component state, not from these collectors.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	PacketsTotal       *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	RateLimitRejected  prometheus.Counter
	ServiceStatus      *prometheus.GaugeVec
	HealthCheckStatus  *prometheus.GaugeVec
	RegisteredServices prometheus.Gauge
	ActiveChains       prometheus.Gauge
}

// NewMetrics creates the full instrument set. Instruments are not
// registered anywhere until Registry.MustRegister is called.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"method", "path", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "conduit",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "API request processing duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		PacketsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Subsystem: "middleware",
				Name:      "packets_total",
				Help:      "Total number of data packets processed",
			},
			[]string{"chain", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Subsystem: "core",
				Name:      "errors_total",
				Help:      "Total number of component errors",
			},
			[]string{"component"},
		),

		RateLimitRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "conduit",
				Subsystem: "gateway",
				Name:      "rate_limit_rejected_total",
				Help:      "Requests rejected by the sliding-window rate limiter",
			},
		),

		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "conduit",
				Subsystem: "registry",
				Name:      "service_status",
				Help:      "Service status (0=unknown, 1=healthy, 2=unhealthy, 3=error)",
			},
			[]string{"service"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "conduit",
				Subsystem: "registry",
				Name:      "health_check_status",
				Help:      "Result of the last health probe (1=healthy, 0=not healthy)",
			},
			[]string{"service"},
		),

		RegisteredServices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "conduit",
				Subsystem: "registry",
				Name:      "services",
				Help:      "Number of services currently in the catalog",
			},
		),

		ActiveChains: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "conduit",
				Subsystem: "middleware",
				Name:      "active_chains",
				Help:      "Number of configured middleware chains",
			},
		),
	}
}

// Registry wraps a dedicated prometheus registry so tests and embedded
// deployments never collide with the global default registry.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewRegistry creates a metrics registry with all platform instruments
// plus the Go runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
	}

	r.prometheusRegistry.MustRegister(
		r.Metrics.RequestsTotal,
		r.Metrics.RequestDuration,
		r.Metrics.PacketsTotal,
		r.Metrics.ErrorsTotal,
		r.Metrics.RateLimitRejected,
		r.Metrics.ServiceStatus,
		r.Metrics.HealthCheckStatus,
		r.Metrics.RegisteredServices,
		r.Metrics.ActiveChains,
	)

	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying prometheus registry for
// gathering or exposition.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}
