// Package links discovers hyperlinks in message bodies and derives
// display titles for them.
//
// Extraction is a pure function of the body text: candidate URLs are
// matched, cleaned of trailing punctuation, deduplicated in order of
// first appearance, and filtered through heuristics that drop
// tracking-wrapper links, signature images, and repeated social-media
// boilerplate.
//
// Title resolution always has a synchronous fallback (hostname plus
// path) and can be enhanced by an external lookup endpoint. Lookup
// results are cached for the life of the resolver; a failed lookup
// silently leaves the fallback in place.
package links
