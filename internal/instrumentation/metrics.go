package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrOutcome   = "outcome"
	attrRoute     = "route"
	attrMethod    = "method"
	attrKind      = "kind"
	attrTable     = "table"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// Backend API metrics
	backendOperationsTotal   metric.Int64Counter
	backendOperationDuration metric.Float64Histogram

	// Delivery pipeline metrics
	attachmentDeliveriesTotal metric.Int64Counter
	attachmentDeliveryBytes   metric.Int64Histogram

	// Title resolver metrics
	titleLookupsTotal metric.Int64Counter

	// Token broker metrics
	tokenAcquisitionsTotal metric.Int64Counter

	// Forward operation metrics
	forwardsTotal   metric.Int64Counter
	forwardDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// Backend API metrics
	m.backendOperationsTotal, err = meter.Int64Counter(
		"backend_api_operations_total",
		metric.WithDescription("Total number of backend API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend_api_operations_total counter: %w", err)
	}

	m.backendOperationDuration, err = meter.Float64Histogram(
		"backend_api_operation_duration_seconds",
		metric.WithDescription("Backend API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend_api_operation_duration_seconds histogram: %w", err)
	}

	// Delivery pipeline metrics
	m.attachmentDeliveriesTotal, err = meter.Int64Counter(
		"attachment_deliveries_total",
		metric.WithDescription("Total number of attachment delivery attempts"),
		metric.WithUnit("{attachment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment_deliveries_total counter: %w", err)
	}

	m.attachmentDeliveryBytes, err = meter.Int64Histogram(
		"attachment_delivery_bytes",
		metric.WithDescription("Size of delivered attachment payloads in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(1024, 10240, 102400, 1048576, 5242880),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment_delivery_bytes histogram: %w", err)
	}

	// Title resolver metrics
	m.titleLookupsTotal, err = meter.Int64Counter(
		"title_lookups_total",
		metric.WithDescription("Total number of title lookup attempts"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create title_lookups_total counter: %w", err)
	}

	// Token broker metrics
	m.tokenAcquisitionsTotal, err = meter.Int64Counter(
		"token_acquisitions_total",
		metric.WithDescription("Total number of access token acquisition attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_acquisitions_total counter: %w", err)
	}

	// Forward operation metrics
	m.forwardsTotal, err = meter.Int64Counter(
		"messages_forwarded_total",
		metric.WithDescription("Total number of message forwarding operations"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages_forwarded_total counter: %w", err)
	}

	m.forwardDuration, err = meter.Float64Histogram(
		"message_forward_duration_seconds",
		metric.WithDescription("Message forwarding duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message_forward_duration_seconds histogram: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordBackendOperation records one backend API operation.
//
// Parameters:
//   - service: backend name (records, msgraph, onedrive, gdrive, titles)
//   - operation: operation type (list, get, create, upload, share, deliver)
//   - status: result status ("success" or "error")
//   - duration: time taken for the operation
func (m *Metrics) RecordBackendOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.backendOperationsTotal == nil || m.backendOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.backendOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.backendOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAttachmentDelivery records one attachment delivery attempt.
//
// Parameters:
//   - outcome: terminal state ("delivered" or "skipped")
//   - route: how the URL was obtained (reference, download_url, share_link,
//     web_url, none)
//   - size: payload size in bytes; zero for reference deliveries
func (m *Metrics) RecordAttachmentDelivery(ctx context.Context, outcome, route string, size int64) {
	if m == nil || m.attachmentDeliveriesTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOutcome, outcome),
		attribute.String(attrRoute, route),
	}

	m.attachmentDeliveriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if size > 0 && m.attachmentDeliveryBytes != nil {
		m.attachmentDeliveryBytes.Record(ctx, size, metric.WithAttributes(attrs...))
	}
}

// RecordTitleLookup records one title lookup attempt.
// Result should be one of: "hit", "miss", "error"
func (m *Metrics) RecordTitleLookup(ctx context.Context, result string) {
	if m == nil || m.titleLookupsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.titleLookupsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTokenAcquisition records one token acquisition attempt.
//
// Parameters:
//   - method: acquisition rung (memoized, pending, silent, interactive, none)
//   - result: "success" or "failure"
func (m *Metrics) RecordTokenAcquisition(ctx context.Context, method, result string) {
	if m == nil || m.tokenAcquisitionsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrResult, result),
	}

	m.tokenAcquisitionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordForward records one message forwarding operation.
//
// Parameters:
//   - kind: record kind (task, doc, note)
//   - status: "success" or "error"
//   - duration: time taken end to end
func (m *Metrics) RecordForward(ctx context.Context, kind, status string, duration time.Duration) {
	if m == nil || m.forwardsTotal == nil || m.forwardDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrKind, kind),
		attribute.String(attrStatus, status),
	}

	m.forwardsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.forwardDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocationWithTable records an MCP tool invocation with the
// backend table. The table label is only attached when detailedLabels
// is enabled; table names are user-controlled and can explode
// cardinality otherwise.
func (m *Metrics) RecordToolInvocationWithTable(ctx context.Context, toolName, status, table string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels && table != "" {
		attrs = append(attrs, attribute.String(attrTable, table))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
