// Package gateway implements conduit's request-routing layer: endpoint
// definitions keyed by (method, path), a priority-ordered middleware
// pipeline, and handler dispatch with timeout and panic containment.
//
// The default pipeline runs logging (assigns the request id), bearer
// authentication, and sliding-window rate limiting, in that order.
// Every request produces a structured Response envelope; processing
// failures never surface as returned errors.
//
// Endpoint registration hard-rejects duplicates. This is the opposite of
// the service registry's replace-on-name-collision policy; the asymmetry
// is deliberate.
package gateway
