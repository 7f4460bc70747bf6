// Package registry implements the live service catalog backing conduit's
// discovery queries and health aggregation.
//
// Services are dual-indexed by id and name. Name is the uniqueness key:
// registering a name that already exists replaces the previous entry and
// retires its id. This is deliberately the opposite of the gateway's
// endpoint table, which hard-rejects duplicates.
//
// A background loop probes every service that exposes endpoints: an HTTP
// GET against the endpoint's health-check path when one is configured, a
// plain TCP connect otherwise. Probe outcomes only ever mutate the
// service's status; the loop and the registry survive any probe failure.
package registry
