// Package refs maps free-text identifiers (names, emails, explicit
// record IDs) to backend record IDs against a locally held option set.
//
// The option sets are loaded once per session per entity kind and are
// read-only afterwards. Resolution is forgiving by design: tokens that
// match nothing are silently dropped, because the worst acceptable
// outcome of a bad token is a record with fewer references, not a
// failed submission.
package refs
