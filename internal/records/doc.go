// Package records is the client for the tabular-record backend.
//
// Records are created against a base/table pair with a flat field map.
// Attachment fields only accept {filename, url} pairs; embedded binary
// content is never accepted, which is why the delivery pipeline exists.
// Listing uses cursor-based pagination: the backend returns an offset
// token whenever more pages remain.
//
// Missing configuration (token or base identifier) is an expected
// condition and surfaces as empty results from the option loaders, not
// as a hard failure; record creation with missing configuration is an
// error because the caller explicitly asked for a write.
package records
