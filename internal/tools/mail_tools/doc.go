// Package mail_tools provides MCP tools for reading mail messages:
// fetching plain text bodies, listing attachments, extracting links
// and resolving link titles.
//
// # Authentication
//
// Tools report a guided authorization flow when the mail host has no
// token yet: the client visits the returned URL, obtains an
// authorization code and saves it with mail_save_auth_code. The code
// is exchanged lazily by the credential broker on the next operation
// that needs a token.
package mail_tools
