package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtable/mailtable/internal/server"
)

func TestRegisterAllTools(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	sc, err := server.NewServerContext(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	mcpSrv := mcpserver.NewMCPServer("mailtable", "test",
		mcpserver.WithToolCapabilities(true),
	)

	require.NoError(t, registerAllTools(mcpSrv, sc))

	registered := make(map[string]bool)
	for _, st := range mcpSrv.ListTools() {
		registered[st.Tool.Name] = true
	}

	expected := []string{
		"mail_get_body",
		"mail_list_attachments",
		"mail_extract_links",
		"mail_resolve_titles",
		"mail_save_auth_code",
		"records_create",
		"records_list",
		"refs_resolve",
		"message_forward",
		"attachments_deliver",
	}
	for _, name := range expected {
		assert.True(t, registered[name], "tool %s should be registered", name)
	}
	assert.Len(t, registered, len(expected))
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name     string
		toolName string
		expected string
	}{
		{"mail tool", "mail_get_body", "Mail Tools"},
		{"records tool", "records_create", "Record Tools"},
		{"refs tool", "refs_resolve", "Record Tools"},
		{"forward tool", "message_forward", "Forwarding Tools"},
		{"deliver tool", "attachments_deliver", "Forwarding Tools"},
		{"unknown prefix", "calendar_list", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getCategoryFromToolName(tt.toolName))
		})
	}
}

func TestGenerateToolsMarkdown(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	sc, err := server.NewServerContext(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	mcpSrv := mcpserver.NewMCPServer("mailtable", "test",
		mcpserver.WithToolCapabilities(true),
	)
	require.NoError(t, registerAllTools(mcpSrv, sc))

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, st := range serverTools {
		tools = append(tools, st.Tool)
	}

	markdown := generateToolsMarkdown(tools)

	assert.True(t, strings.HasPrefix(markdown, "# MCP Tools Reference"))
	for _, heading := range []string{"## Mail Tools", "## Record Tools", "## Forwarding Tools"} {
		assert.Contains(t, markdown, heading)
	}
	assert.Contains(t, markdown, "### message_forward")
	assert.Contains(t, markdown, "- `message_id` (required)")
}
