// Package logging provides the leveled, subsystem-tagged logger used by all
// conduit components.
//
// Every log call names the component it originates from, which keeps the
// interleaved output of the coordinator, gateway, registry, and middleware
// orchestrator attributable:
//
//	logging.Info("Registry", "Registered service %s (%s)", info.Name, id)
//	logging.Error("Gateway", err, "Handler failed for %s %s", req.Method, req.Path)
//
// The package wraps log/slog with a text handler. Call Init once at startup
// to set the minimum level and output writer; tests typically call Silence.
package logging
