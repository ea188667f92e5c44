// Package forward_tools provides the MCP tools that tie the pipeline
// together: forwarding a mail message into the record backend and
// delivering attachments to file hosting.
//
// message_forward runs the full flow: fetch the message, extract and
// title links, deliver the selected attachments, resolve reference
// tokens and create the record. attachments_deliver exposes the
// delivery stage on its own.
package forward_tools
