// Package middleware implements conduit's data-packet processing layer:
// named, reusable middleware components composed into ordered chains.
//
// Every component implements the one-method Middleware contract. Chains
// store component names rather than instances, so re-registering a name
// swaps the behavior of every chain referencing it. Chain creation
// validates that all referenced names exist; chains can never point at
// unregistered middleware.
//
// A stage failure aborts the chain for that packet only. The error is
// attached to the packet's metadata and returned to the caller; the
// orchestrator keeps running.
package middleware
