// Package telemetry wires OpenTelemetry tracing and metrics for meetextract.
//
// New installs global tracer and meter providers that export over OTLP
// (gRPC by default, HTTP/protobuf on request). When telemetry is disabled the
// globals stay no-op, so instrumented packages call otel.Tracer and otel.Meter
// unconditionally. Exporter failures degrade the instance instead of failing
// startup.
package telemetry
