// Package mailhost provides access to the host mail API that owns the
// message being forwarded.
//
// The package exposes message metadata, the plain-text body, the
// attachment list, and per-attachment content retrieval. Attachment
// content comes in one of two transport shapes: an opaque reference URL
// that is already externally resolvable, or an embedded binary payload
// encoded as text. Anything else is reported as unsupported so callers
// can drop the item without failing the batch.
//
// The concrete implementation talks to the Microsoft Graph mail
// endpoints, but callers should depend on the Host interface so tests
// and alternative hosts can substitute their own.
package mailhost
