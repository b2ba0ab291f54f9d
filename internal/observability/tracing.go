package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "arlo"

// Tracer returns the process-wide tracer. Without an SDK installed this is
// a no-op tracer, so instrumentation is free in the default configuration.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
