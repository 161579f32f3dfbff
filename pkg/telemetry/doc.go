// Package telemetry provides structured logging, distributed tracing,
// Prometheus metrics, and event publishing for the dialtone engine.
//
// The Telemetry handle bundles all four concerns and travels through
// context.Context so provisioning and dialog code can instrument itself
// without plumbing individual collectors:
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	ctx = tel.WithContext(ctx)
//	ctx = telemetry.WithRunContext(ctx, runID, instance)
//	defer telemetry.EndRunContext(ctx, runID, "completed", nil)
//
// Logging is zerolog with per-component child loggers; tracing exports
// through OTLP or stdout; metrics are served from a dedicated registry
// on /metrics.
package telemetry
