package forward_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mailtable/mailtable/internal/forward"
	"github.com/mailtable/mailtable/internal/instrumentation"
	"github.com/mailtable/mailtable/internal/mailhost"
	"github.com/mailtable/mailtable/internal/refs"
	"github.com/mailtable/mailtable/internal/server"
	"github.com/mailtable/mailtable/internal/tools/batch"
	"github.com/mailtable/mailtable/internal/tools/common"
)

// RegisterForwardTools registers forwarding and delivery tools with the MCP server
func RegisterForwardTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	forwardTool := mcp.NewTool("message_forward",
		mcp.WithDescription("Forward a mail message into the record backend as a task, doc or note. Links are extracted and titled, attachments are delivered to file hosting, and reference tokens are resolved to record IDs."),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("The ID of the mail message"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Record kind: 'task', 'doc' or 'note'"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes to prepend to the record body"),
		),
		mcp.WithString("projects",
			mcp.Description("Comma-separated project record IDs or names"),
		),
		mcp.WithString("assignees",
			mcp.Description("Comma-separated collaborator record IDs or names"),
		),
		mcp.WithString("people",
			mcp.Description("Comma-separated external people record IDs or names"),
		),
		mcp.WithString("owner",
			mcp.Description("A single collaborator record ID, name or email address"),
		),
		mcp.WithString("attachment_ids",
			mcp.Description("Comma-separated attachment IDs to deliver (default: all)"),
		),
		mcp.WithBoolean("skip_attachments",
			mcp.Description("Skip attachment delivery entirely"),
		),
		mcp.WithBoolean("skip_links",
			mcp.Description("Skip link extraction entirely"),
		),
	)
	s.AddTool(forwardTool, common.InstrumentedToolHandlerWithService(
		"message_forward", instrumentation.ServiceRecords, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleForward(ctx, request, sc)
		}))

	deliverTool := mcp.NewTool("attachments_deliver",
		mcp.WithDescription("Deliver the attachments of a mail message to file hosting and return {filename, url} pairs. Items that cannot be delivered are skipped."),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("The ID of the mail message"),
		),
		mcp.WithString("attachment_ids",
			mcp.Description("Comma-separated attachment IDs to deliver (default: all)"),
		),
	)
	s.AddTool(deliverTool, common.InstrumentedToolHandlerWithService(
		"attachments_deliver", instrumentation.ServiceOneDrive, instrumentation.OperationDeliver, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeliver(ctx, request, sc)
		}))

	return nil
}

func handleForward(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["message_id"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("message_id is required"), nil
	}

	rawKind, ok := args["kind"].(string)
	if !ok || rawKind == "" {
		return mcp.NewToolResultError("kind is required"), nil
	}
	kind, err := forward.ParseKind(rawKind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := sc.Session()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Forwarding unavailable: %v", err)), nil
	}

	req := forward.Request{
		MessageID: messageID,
		Kind:      kind,
	}
	if notes, ok := args["notes"].(string); ok {
		req.Notes = notes
	}
	if projects, ok := args["projects"].(string); ok {
		req.ProjectTokens = projects
	}
	if assignees, ok := args["assignees"].(string); ok {
		req.AssigneeTokens = assignees
	}
	if people, ok := args["people"].(string); ok {
		req.PeopleTokens = people
	}
	if owner, ok := args["owner"].(string); ok {
		req.Owner = strings.TrimSpace(owner)
	}
	if rawIDs, ok := args["attachment_ids"].(string); ok && rawIDs != "" {
		req.AttachmentIDs = refs.SplitTokens(rawIDs)
	}
	if skip, ok := args["skip_attachments"].(bool); ok {
		req.SkipAttachments = skip
	}
	if skip, ok := args["skip_links"].(bool); ok {
		req.SkipLinks = skip
	}

	start := time.Now()
	result, err := session.Forward(ctx, req)
	if err != nil {
		sc.Metrics().RecordForward(ctx, string(kind), instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to forward message: %v", err)), nil
	}
	sc.Metrics().RecordForward(ctx, string(kind), instrumentation.StatusSuccess, time.Since(start))

	summary := map[string]interface{}{
		"record":      result.Record.ID,
		"table":       result.Table,
		"links":       len(result.Links),
		"attachments": result.Attachments,
	}
	jsonBytes, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Forwarded message into %s:\n%s", result.Table, string(jsonBytes))), nil
}

func handleDeliver(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["message_id"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("message_id is required"), nil
	}

	host, err := sc.Host()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create mail host: %v", err)), nil
	}
	pipeline, err := sc.Pipeline()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Delivery unavailable: %v", err)), nil
	}

	handles, err := host.Attachments(ctx, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list attachments: %v", err)), nil
	}

	var wanted []string
	if rawIDs, ok := args["attachment_ids"].(string); ok && rawIDs != "" {
		wanted = refs.SplitTokens(rawIDs)
	}

	selected := make([]mailhost.AttachmentHandle, 0, len(handles))
	for _, h := range handles {
		if len(wanted) > 0 && !containsString(wanted, h.ID) {
			continue
		}
		selected = append(selected, *h)
	}
	if len(selected) == 0 {
		return mcp.NewToolResultText("No attachments selected"), nil
	}

	itemResults := pipeline.DeliverResults(ctx, messageID, selected)

	delivered := 0
	results := make([]batch.Result, 0, len(itemResults))
	for _, r := range itemResults {
		if r.Attachment != nil {
			delivered++
			results = append(results, batch.Delivered(r.ID, r.Attachment.URL))
		} else {
			results = append(results, batch.Skipped(r.ID, "attachment could not be delivered"))
		}
	}

	return mcp.NewToolResultText(fmt.Sprintf("Delivered %d of %d attachment(s):\n%s",
		delivered, len(selected), batch.FormatReport(results))), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
