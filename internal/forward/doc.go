// Package forward composes the extraction pipeline: it pulls a message
// from the mail host, extracts and titles its links, resolves free-text
// references to backend record IDs, delivers attachments, and creates
// one record in the tabular backend.
package forward
