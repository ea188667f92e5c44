package instrumentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation("message_forward")
	if ti.Tool != "message_forward" {
		t.Errorf("Tool = %q, want message_forward", ti.Tool)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}

	time.Sleep(time.Millisecond)
	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Duration <= 0 {
		t.Error("Duration should be positive after Complete")
	}
	if ti.Error != "" {
		t.Errorf("Error = %q, want empty", ti.Error)
	}
	if ti.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusSuccess)
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation("records_create")
	ti.CompleteWithError(errors.New("backend rejected the record"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "backend rejected the record" {
		t.Errorf("Error = %q, want the error message", ti.Error)
	}
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusError)
	}
}

func TestToolInvocation_Builders(t *testing.T) {
	ti := NewToolInvocation("message_forward").
		WithMessage("msg-123", "jane@example.com").
		WithTarget("Tasks", "task").
		WithService(ServiceRecords, OperationCreate)

	if ti.MessageID != "msg-123" || ti.SenderEmail != "jane@example.com" {
		t.Errorf("message identity = %q/%q, want msg-123/jane@example.com", ti.MessageID, ti.SenderEmail)
	}
	if ti.Table != "Tasks" || ti.Kind != "task" {
		t.Errorf("target = %q/%q, want Tasks/task", ti.Table, ti.Kind)
	}
	if ti.ServiceName != ServiceRecords || ti.Operation != OperationCreate {
		t.Errorf("service = %q/%q, want %q/%q", ti.ServiceName, ti.Operation, ServiceRecords, OperationCreate)
	}
}

func TestToolInvocation_SenderDomain(t *testing.T) {
	ti := NewToolInvocation("t").WithMessage("m1", "jane@example.com")
	if got := ti.SenderDomain(); got != "example.com" {
		t.Errorf("SenderDomain() = %q, want example.com", got)
	}
}

func hasAttr(attrs []slog.Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

func TestToolInvocation_LogAttrsOmitsMailboxIdentity(t *testing.T) {
	ti := NewToolInvocation("message_forward").
		WithMessage("msg-123", "jane@example.com").
		WithTarget("Tasks", "task").
		CompleteSuccess()

	attrs := ti.LogAttrs()

	if hasAttr(attrs, "sender") {
		t.Error("LogAttrs() should not include the full sender address")
	}
	if hasAttr(attrs, "message_id") {
		t.Error("LogAttrs() should not include the message ID")
	}
	if !hasAttr(attrs, "sender_domain") {
		t.Error("LogAttrs() should include the sender domain")
	}
	if !hasAttr(attrs, "table") || !hasAttr(attrs, "kind") {
		t.Error("LogAttrs() should include table and kind")
	}
}

func TestToolInvocation_LogAuditAttrsIncludesMailboxIdentity(t *testing.T) {
	ti := NewToolInvocation("message_forward").
		WithMessage("msg-123", "jane@example.com").
		CompleteSuccess()

	attrs := ti.LogAuditAttrs()

	if !hasAttr(attrs, "sender") {
		t.Error("LogAuditAttrs() should include the full sender address")
	}
	if !hasAttr(attrs, "message_id") {
		t.Error("LogAuditAttrs() should include the message ID")
	}
}

func newCapturedLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	logger, buf := newCapturedLogger()
	al := NewAuditLogger(logger)

	ti := NewToolInvocation("message_forward").
		WithMessage("msg-123", "jane@example.com").
		CompleteSuccess()
	al.LogToolInvocation(ti)

	out := buf.String()
	if !strings.Contains(out, "tool_executed") {
		t.Errorf("log output %q, want tool_executed event", out)
	}
	if strings.Contains(out, "jane@example.com") {
		t.Error("default audit logger should not log the full sender address")
	}
	if !strings.Contains(out, "example.com") {
		t.Error("log output should contain the sender domain")
	}
}

func TestAuditLogger_LogToolInvocationWithPII(t *testing.T) {
	logger, buf := newCapturedLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludePII: true})

	ti := NewToolInvocation("message_forward").
		WithMessage("msg-123", "jane@example.com").
		CompleteSuccess()
	al.LogToolInvocation(ti)

	if !strings.Contains(buf.String(), "jane@example.com") {
		t.Error("PII-enabled audit logger should log the full sender address")
	}
}

func TestAuditLogger_Failure(t *testing.T) {
	logger, buf := newCapturedLogger()
	al := NewAuditLogger(logger)

	ti := NewToolInvocation("records_create").
		CompleteWithError(errors.New("unprocessable"))
	al.LogToolInvocation(ti)

	out := buf.String()
	if !strings.Contains(out, "tool_failed") {
		t.Errorf("log output %q, want tool_failed event", out)
	}
	if !strings.Contains(out, "unprocessable") {
		t.Error("log output should contain the error message")
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	logger, buf := newCapturedLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})

	al.LogToolInvocation(NewToolInvocation("t").CompleteSuccess())
	al.LogToolAudit(NewToolInvocation("t").CompleteSuccess())

	if buf.Len() != 0 {
		t.Errorf("disabled audit logger produced output: %q", buf.String())
	}
}

func TestAuditLogger_LogToolAudit(t *testing.T) {
	logger, buf := newCapturedLogger()
	al := NewAuditLogger(logger)

	ti := NewToolInvocation("message_forward").
		WithMessage("msg-123", "jane@example.com").
		CompleteSuccess()
	al.LogToolAudit(ti)

	out := buf.String()
	if !strings.Contains(out, "tool_audit") {
		t.Errorf("log output %q, want tool_audit event", out)
	}
	if !strings.Contains(out, "jane@example.com") {
		t.Error("tool_audit should always include mailbox identity")
	}
}

func TestAuditLogger_SetIncludePII(t *testing.T) {
	logger, buf := newCapturedLogger()
	al := NewAuditLogger(logger)
	al.SetIncludePII(true)

	ti := NewToolInvocation("t").WithMessage("m1", "jane@example.com").CompleteSuccess()
	al.LogToolInvocation(ti)

	if !strings.Contains(buf.String(), "jane@example.com") {
		t.Error("SetIncludePII(true) should enable full identity logging")
	}
}
