package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	require.NotNil(t, r.Metrics)
	require.NotNil(t, r.PrometheusRegistry())
}

func TestCountersGather(t *testing.T) {
	r := NewRegistry()

	r.Metrics.RequestsTotal.WithLabelValues("GET", "/api/health", "200").Inc()
	r.Metrics.RequestsTotal.WithLabelValues("GET", "/api/health", "200").Inc()
	r.Metrics.PacketsTotal.WithLabelValues("default", "ok").Inc()
	r.Metrics.RateLimitRejected.Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(
		r.Metrics.RequestsTotal.WithLabelValues("GET", "/api/health", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.Metrics.PacketsTotal.WithLabelValues("default", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.RateLimitRejected))
}

func TestIndependentRegistries(t *testing.T) {
	// Two registries must not share collector state.
	a := NewRegistry()
	b := NewRegistry()

	a.Metrics.RegisteredServices.Set(5)

	assert.Equal(t, float64(5), testutil.ToFloat64(a.Metrics.RegisteredServices))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.Metrics.RegisteredServices))
}
