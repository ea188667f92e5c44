// Package batch provides common utilities for multi-item MCP tool operations.
//
// This package includes helpers for:
//   - Parsing parameters that accept both single values and arrays
//   - Reporting per-item outcomes (delivered, skipped, errored) in a
//     consistent structure across tools
//   - Handling partial failures without aborting the whole request
package batch
