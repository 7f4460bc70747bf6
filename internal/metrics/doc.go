// Package metrics provides the prometheus instrumentation shared by the
// gateway, middleware orchestrator, and service registry. Each process
// owns one Registry instance; components receive the Metrics struct at
// construction and update instruments inline.
package metrics
