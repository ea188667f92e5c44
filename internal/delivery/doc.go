// Package delivery turns mail attachments into {filename, url} pairs
// the record backend accepts.
//
// Each attachment runs through a small state machine ending in
// Delivered or Skipped. Reference-shaped content is delivered as-is;
// payload-shaped content is decoded and uploaded to the hosting
// service, then resolved to a URL through a fixed fallback ladder:
// direct download URL, anonymous share link, organization share link,
// plain web URL. A missing hosting token is a batch-level precondition
// failure, not a per-item error.
package delivery
