// Package telemetry groups the observability packages of custodian.
//
// # Components
//
//   - logging: structured log/slog setup with key redaction
//   - metrics: Prometheus collectors for deletion runs, exports, alerts
//     and the audit recorder
//   - tracing: OpenTelemetry provider with an OTLP gRPC exporter
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	cfg := config.GetConfig()
//	logger, _ := logging.Setup(logging.FromConfig(&cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	provider, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer provider.Shutdown(context.Background())
//
// The metrics endpoint and the health endpoints share one listener, served
// by the run command.
package telemetry
