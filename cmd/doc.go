// Package cmd implements the command-line interface for mailtable.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide tools for AI assistants
//   - forward: Forward a single mail message into the record backend
//   - authorize: Authorize access to the mailbox or to Google Drive
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
