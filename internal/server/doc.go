// Package server provides the MCP server context and its operational
// HTTP endpoints for the mailtable application.
//
// # Key Components
//
// ServerContext manages the mail host, the record backend client, the
// attachment hosting backend and the forwarding session with lazy
// initialization and caching. Components are created on first use so
// the server can start before all credentials are configured; tools
// report missing configuration per invocation instead.
//
// HealthChecker exposes Kubernetes-style liveness and readiness
// probes. Readiness reports record backend configuration as an
// informational check without failing the probe.
//
// MetricsServer serves Prometheus metrics on a dedicated port,
// isolated from the MCP transport.
package server
