// Package tracing sets up OpenTelemetry tracing for custodian.
//
// Deletion runs, exports and purges open spans through otel.Tracer. This
// package installs the SDK provider those spans go to: an OTLP gRPC
// exporter behind a batch processor, with a parent-based sampler.
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: otel-collector:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.25
//
// With tracing disabled, New returns a no-op provider and the global
// provider is left alone, so spans cost next to nothing.
package tracing
