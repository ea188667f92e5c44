// Package record_tools provides MCP tools for the tabular record
// backend: creating records, listing table contents and resolving
// reference tokens against the session's option caches.
package record_tools
