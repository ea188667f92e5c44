// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the mailtable MCP server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for backend API calls, attachment
//     delivery, title lookups and token acquisition
//   - Distributed tracing for tool invocations and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Backend API Metrics:
//   - backend_api_operations_total: Counter of backend API operations by service, operation, status
//   - backend_api_operation_duration_seconds: Histogram of backend API operation durations
//
// Delivery Pipeline Metrics:
//   - attachment_deliveries_total: Counter of delivery attempts by outcome and route
//   - attachment_delivery_bytes: Histogram of delivered payload sizes
//
// Title Resolver Metrics:
//   - title_lookups_total: Counter of title lookup attempts by result
//
// Token Broker Metrics:
//   - token_acquisitions_total: Counter of token acquisition attempts by method and result
//
// Forward Metrics:
//   - messages_forwarded_total: Counter of forwarding operations by kind and status
//   - message_forward_duration_seconds: Histogram of end-to-end forwarding durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - Backend API calls (api.<service>.<operation>)
//   - Token operations
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: mailtable)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "mailtable",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record a backend API operation
//	recorder.RecordBackendOperation(ctx, "records", "create", "success", time.Since(start))
//
//	// Record an MCP tool invocation
//	recorder.RecordToolInvocation(ctx, "message_forward", "success", time.Since(start))
package instrumentation
