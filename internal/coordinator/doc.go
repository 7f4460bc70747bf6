// Package coordinator ties the gateway, middleware orchestrator, service
// registry, and config manager into one lifecycle. Components start in
// dependency order and stop in reverse; a failure during either
// transition parks the coordinator in the error state and is returned to
// the caller, the only situation in which an error crosses the
// coordinator boundary. Request and packet processing always come back
// as structured results.
package coordinator
