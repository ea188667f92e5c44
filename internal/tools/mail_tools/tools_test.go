package mail_tools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mailtable/mailtable/internal/server"
)

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	sc, err := server.NewServerContext(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected result content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatal("expected text content")
	}
	return text.Text
}

func TestHandleGetBody_RequiresMessageID(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleGetBody(context.Background(), callRequest(map[string]interface{}{}), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing message_id")
	}
}

func TestHandleResolveTitles(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleResolveTitles(context.Background(), callRequest(map[string]interface{}{
		"urls": "https://example.com/docs/report https://example.com/",
	}), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	text := resultText(t, result)
	// Without a lookup endpoint titles fall back to hostname labels.
	if !strings.Contains(text, "example.com/docs/report") {
		t.Errorf("expected fallback label in output, got %s", text)
	}
}

func TestHandleResolveTitles_ArrayInput(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleResolveTitles(context.Background(), callRequest(map[string]interface{}{
		"urls": []interface{}{"https://example.com/a", "https://example.com/b"},
	}), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "example.com/a") || !strings.Contains(text, "example.com/b") {
		t.Errorf("expected both links in output, got %s", text)
	}
}

func TestHandleResolveTitles_RequiresURLs(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleResolveTitles(context.Background(), callRequest(map[string]interface{}{
		"urls": "   ",
	}), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for blank urls")
	}
}

func TestHandleSaveAuthCode(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleSaveAuthCode(context.Background(), callRequest(map[string]interface{}{
		"code": "auth-code-1",
	}), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
}

func TestHandleSaveAuthCode_RequiresCode(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleSaveAuthCode(context.Background(), callRequest(map[string]interface{}{}), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing code")
	}
}

func TestAuthHintWithoutConfiguredIdentity(t *testing.T) {
	t.Setenv("MAILTABLE_MSGRAPH_CLIENT_ID", "")
	t.Setenv("MAILTABLE_MSGRAPH_TENANT_ID", "")
	t.Setenv("MAILTABLE_MSGRAPH_REDIRECT_URL", "")
	sc := newTestServerContext(t)

	hint := authHint(sc)
	if !strings.Contains(hint, "MAILTABLE_MSGRAPH_CLIENT_ID") {
		t.Errorf("authHint() = %q, want configuration guidance", hint)
	}
	if strings.Contains(hint, "Visit this URL") {
		t.Errorf("authHint() = %q, want no authorization URL without an identity", hint)
	}
}

func TestAuthHintWithConfiguredIdentity(t *testing.T) {
	t.Setenv("MAILTABLE_MSGRAPH_CLIENT_ID", "client")
	t.Setenv("MAILTABLE_MSGRAPH_TENANT_ID", "tenant")
	t.Setenv("MAILTABLE_MSGRAPH_REDIRECT_URL", "http://localhost/cb")
	sc := newTestServerContext(t)

	hint := authHint(sc)
	if !strings.Contains(hint, "Visit this URL") || !strings.Contains(hint, "client_id=client") {
		t.Errorf("authHint() = %q, want authorization walkthrough with the auth URL", hint)
	}
}
