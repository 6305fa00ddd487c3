// Package telemetry exposes the process-wide otel tracer and meter
// handles. Modeled on observability/otel.Init, minus its OTLP exporter:
// this control plane only needs the instrumentation points themselves,
// since Prometheus already owns the counters in internal/metrics. This
// package stops at the otel API surface and leaves SDK/exporter wiring to
// the deployment's auto-instrumentation.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "ctrlplane"

// Tracer returns the control plane's named tracer. Spans recorded against
// it are no-ops until a process wires a TracerProvider via
// otel.SetTracerProvider, which is exactly how a library is meant to
// instrument without binding itself to one SDK.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Meter returns the control plane's named meter, for the handful of
// measurements worth exposing through both Prometheus (internal/metrics)
// and an OTLP collector simultaneously.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
