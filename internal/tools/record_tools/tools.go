package record_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mailtable/mailtable/internal/instrumentation"
	"github.com/mailtable/mailtable/internal/records"
	"github.com/mailtable/mailtable/internal/refs"
	"github.com/mailtable/mailtable/internal/server"
	"github.com/mailtable/mailtable/internal/tools/common"
)

// RegisterRecordTools registers record backend tools with the MCP server
func RegisterRecordTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	createTool := mcp.NewTool("records_create",
		mcp.WithDescription("Create a record in a backend table"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table to create the record in"),
		),
		mcp.WithString("fields",
			mcp.Required(),
			mcp.Description("The record fields as a JSON object"),
		),
	)
	s.AddTool(createTool, common.InstrumentedToolHandlerWithService(
		"records_create", instrumentation.ServiceRecords, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateRecord(ctx, request, sc)
		}))

	listTool := mcp.NewTool("records_list",
		mcp.WithDescription("List records from a backend table"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table to list records from"),
		),
		mcp.WithString("fields",
			mcp.Description("Comma-separated list of fields to return (default: all)"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Records per page (default: backend default). When set, only the first page is returned."),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandlerWithService(
		"records_list", instrumentation.ServiceRecords, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListRecords(ctx, request, sc)
		}))

	resolveTool := mcp.NewTool("refs_resolve",
		mcp.WithDescription("Resolve comma-separated reference tokens against a reference table. Tokens starting with 'rec' are accepted verbatim; other tokens are matched case-insensitively against display names, first match wins; unmatched tokens are dropped."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("The reference entity: 'projects', 'collaborators' or 'people'"),
		),
		mcp.WithString("tokens",
			mcp.Required(),
			mcp.Description("Comma-separated record IDs or display names"),
		),
	)
	s.AddTool(resolveTool, common.InstrumentedToolHandlerWithService(
		"refs_resolve", instrumentation.ServiceRecords, instrumentation.OperationLookup, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleResolveRefs(ctx, request, sc)
		}))

	return nil
}

func handleCreateRecord(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	table, ok := args["table"].(string)
	if !ok || table == "" {
		return mcp.NewToolResultError("table is required"), nil
	}

	rawFields, ok := args["fields"].(string)
	if !ok || rawFields == "" {
		return mcp.NewToolResultError("fields is required"), nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(rawFields), &fields); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fields must be a JSON object: %v", err)), nil
	}

	client, err := sc.Records()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Record backend unavailable: %v", err)), nil
	}

	record, err := client.CreateRecord(ctx, table, fields)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create record: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created record %s in %s:\n%s", record.ID, table, string(jsonBytes))), nil
}

func handleListRecords(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	table, ok := args["table"].(string)
	if !ok || table == "" {
		return mcp.NewToolResultError("table is required"), nil
	}

	var opts records.ListOptions
	if rawFields, ok := args["fields"].(string); ok && rawFields != "" {
		opts.Fields = refs.SplitTokens(rawFields)
	}

	client, err := sc.Records()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Record backend unavailable: %v", err)), nil
	}

	var recordList []records.Record
	if pageSize, ok := args["page_size"].(float64); ok && pageSize > 0 {
		opts.PageSize = int(pageSize)
		recordList, _, err = client.ListRecords(ctx, table, opts)
	} else {
		recordList, err = client.ListAllRecords(ctx, table, opts)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list records: %v", err)), nil
	}

	if len(recordList) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No records found in %s", table)), nil
	}

	jsonBytes, err := json.MarshalIndent(recordList, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Found %d record(s) in %s:\n%s", len(recordList), table, string(jsonBytes))), nil
}

func handleResolveRefs(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	entity, ok := args["entity"].(string)
	if !ok || entity == "" {
		return mcp.NewToolResultError("entity is required"), nil
	}

	rawTokens, ok := args["tokens"].(string)
	if !ok || rawTokens == "" {
		return mcp.NewToolResultError("tokens is required"), nil
	}

	session, err := sc.Session()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Record backend unavailable: %v", err)), nil
	}

	var options []refs.Option
	switch entity {
	case "projects":
		options = session.ProjectOptions(ctx)
	case "collaborators":
		options = session.CollaboratorOptions(ctx)
	case "people":
		options = session.PeopleOptions(ctx)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown entity %q, must be one of: projects, collaborators, people", entity)), nil
	}

	resolved := refs.ResolveTokens(refs.SplitTokens(rawTokens), options)
	if len(resolved) == 0 {
		return mcp.NewToolResultText("No tokens resolved"), nil
	}

	jsonBytes, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}
