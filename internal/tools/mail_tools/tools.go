package mail_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mailtable/mailtable/internal/instrumentation"
	"github.com/mailtable/mailtable/internal/links"
	"github.com/mailtable/mailtable/internal/server"
	"github.com/mailtable/mailtable/internal/tools/batch"
	"github.com/mailtable/mailtable/internal/tools/common"
)

// RegisterMailTools registers mail message tools with the MCP server
func RegisterMailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getBodyTool := mcp.NewTool("mail_get_body",
		mcp.WithDescription("Get the plain text body of a mail message"),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("The ID of the mail message"),
		),
	)
	s.AddTool(getBodyTool, common.InstrumentedToolHandlerWithService(
		"mail_get_body", instrumentation.ServiceMailHost, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetBody(ctx, request, sc)
		}))

	listAttachmentsTool := mcp.NewTool("mail_list_attachments",
		mcp.WithDescription("List the file attachments of a mail message"),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("The ID of the mail message"),
		),
	)
	s.AddTool(listAttachmentsTool, common.InstrumentedToolHandlerWithService(
		"mail_list_attachments", instrumentation.ServiceMailHost, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAttachments(ctx, request, sc)
		}))

	extractLinksTool := mcp.NewTool("mail_extract_links",
		mcp.WithDescription("Extract the http(s) links from the body of a mail message"),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("The ID of the mail message"),
		),
	)
	s.AddTool(extractLinksTool, common.InstrumentedToolHandlerWithService(
		"mail_extract_links", instrumentation.ServiceMailHost, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleExtractLinks(ctx, request, sc)
		}))

	resolveTitlesTool := mcp.NewTool("mail_resolve_titles",
		mcp.WithDescription("Resolve display titles for a set of links. Links without a resolvable page title get a hostname-based label."),
		mcp.WithString("urls",
			mcp.Required(),
			mcp.Description("Links to resolve: a whitespace-separated string or an array of links"),
		),
	)
	s.AddTool(resolveTitlesTool, common.InstrumentedToolHandlerWithService(
		"mail_resolve_titles", instrumentation.ServiceTitles, instrumentation.OperationLookup, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleResolveTitles(ctx, request, sc)
		}))

	saveAuthCodeTool := mcp.NewTool("mail_save_auth_code",
		mcp.WithDescription("Save an OAuth authorization code for the mail host. The code is exchanged for a token on the next operation that needs one."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("The authorization code from the OAuth redirect"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler("mail_save_auth_code", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))

	return nil
}

// authHint builds the error text returned when the mail host has no
// credentials yet.
func authHint(sc *server.ServerContext) string {
	authURL := sc.Broker().AuthURL()
	if authURL == "" {
		return "Mail host access is not configured. Set MAILTABLE_MSGRAPH_CLIENT_ID and MAILTABLE_MSGRAPH_TENANT_ID."
	}
	return fmt.Sprintf(`Mail host token not found. To authorize access:

1. Visit this URL in your browser:
   %s

2. Sign in and grant access to your mailbox
3. Copy the authorization code from the redirect
4. Provide the code to your AI agent
   The agent will use the mail_save_auth_code tool to complete authentication.

Note: You only need to authorize once. The token will be refreshed automatically.`, authURL)
}

func handleGetBody(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["message_id"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("message_id is required"), nil
	}

	host, err := sc.Host()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create mail host: %v", err)), nil
	}

	body, err := host.BodyText(ctx, messageID)
	if err != nil {
		if !sc.Broker().HasToken() {
			return mcp.NewToolResultError(authHint(sc)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch message body: %v", err)), nil
	}

	return mcp.NewToolResultText(body), nil
}

func handleListAttachments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["message_id"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("message_id is required"), nil
	}

	host, err := sc.Host()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create mail host: %v", err)), nil
	}

	attachments, err := host.Attachments(ctx, messageID)
	if err != nil {
		if !sc.Broker().HasToken() {
			return mcp.NewToolResultError(authHint(sc)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list attachments: %v", err)), nil
	}

	if len(attachments) == 0 {
		return mcp.NewToolResultText("No attachments found in message"), nil
	}

	jsonBytes, err := json.MarshalIndent(attachments, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Found %d attachment(s):\n%s", len(attachments), string(jsonBytes))), nil
}

func handleExtractLinks(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["message_id"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("message_id is required"), nil
	}

	host, err := sc.Host()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create mail host: %v", err)), nil
	}

	body, err := host.BodyText(ctx, messageID)
	if err != nil {
		if !sc.Broker().HasToken() {
			return mcp.NewToolResultError(authHint(sc)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch message body: %v", err)), nil
	}

	found := links.Extract(body, links.DefaultMaxScanLength)
	if len(found) == 0 {
		return mcp.NewToolResultText("No links found in message"), nil
	}

	jsonBytes, err := json.MarshalIndent(found, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Found %d link(s):\n%s", len(found), string(jsonBytes))), nil
}

func handleResolveTitles(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	items, err := batch.ParseStringOrArray(args["urls"], "urls")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var urls []string
	for _, item := range items {
		urls = append(urls, strings.Fields(item)...)
	}
	if len(urls) == 0 {
		return mcp.NewToolResultError("urls is required"), nil
	}

	titles := sc.Titles()
	titles.Prime(ctx, urls)

	resolved := make(map[string]string, len(urls))
	for _, u := range urls {
		resolved[u] = titles.Resolve(u)
	}

	jsonBytes, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func handleSaveAuthCode(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	code, ok := args["code"].(string)
	if !ok || code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	if err := sc.Broker().SavePendingAuthCode(code); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code: %v", err)), nil
	}

	return mcp.NewToolResultText("Authorization code saved. It will be exchanged for a token on the next mail operation."), nil
}
