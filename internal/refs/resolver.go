package refs

import (
	"regexp"
	"strings"
)

// IDPrefix is the fixed literal prefix carried by backend record IDs.
// It distinguishes an explicit record reference from free text.
const IDPrefix = "rec"

// Option is one selectable reference target: a record the backend
// already knows about, with the display name and email a user might
// type instead of the ID.
type Option struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// tokenSeparators splits free-text input into individual tokens.
var tokenSeparators = regexp.MustCompile(`[,;\n]+`)

// SplitTokens breaks comma/semicolon/newline separated input into
// trimmed, non-empty tokens.
func SplitTokens(input string) []string {
	var tokens []string
	for _, part := range tokenSeparators.Split(input, -1) {
		if tok := strings.TrimSpace(part); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// ResolveTokens maps tokens to a deduplicated set of record IDs.
// A token carrying the ID prefix is accepted verbatim; anything else is
// matched case-insensitively against the option set by exact id,
// display name, or email, first match winning. Unmatched tokens are
// dropped. The result is re-filtered to the ID prefix as a defensive
// double-check; order is not significant.
func ResolveTokens(tokens []string, options []Option) []string {
	seen := make(map[string]bool)
	var ids []string

	for _, tok := range tokens {
		id := resolveOne(strings.TrimSpace(tok), options)
		if id == "" || !strings.HasPrefix(id, IDPrefix) {
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids
}

// resolveOne resolves a single token to a record ID, or "".
func resolveOne(tok string, options []Option) string {
	if tok == "" {
		return ""
	}
	if strings.HasPrefix(tok, IDPrefix) {
		return tok
	}

	lower := strings.ToLower(tok)
	for _, o := range options {
		if strings.EqualFold(o.ID, lower) ||
			strings.EqualFold(o.DisplayName, lower) ||
			(o.Email != "" && strings.EqualFold(o.Email, lower)) {
			return o.ID
		}
	}

	return ""
}

// OwnerRef is the resolution result for a single-value owner field:
// at most one record ID or one email address, never both.
type OwnerRef struct {
	ID    string
	Email string
}

// IsZero reports whether nothing was resolved.
func (o OwnerRef) IsZero() bool {
	return o.ID == "" && o.Email == ""
}

// ResolveOwner resolves a single-value owner token, preferring
// whichever of (direct record ID, resolved record ID, resolved email,
// literal email-looking string) is available, in that order.
func ResolveOwner(token string, options []Option) OwnerRef {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return OwnerRef{}
	}
	if strings.HasPrefix(tok, IDPrefix) {
		return OwnerRef{ID: tok}
	}

	lower := strings.ToLower(tok)
	for _, o := range options {
		if strings.EqualFold(o.ID, lower) ||
			strings.EqualFold(o.DisplayName, lower) ||
			(o.Email != "" && strings.EqualFold(o.Email, lower)) {
			if o.ID != "" {
				return OwnerRef{ID: o.ID}
			}
			if o.Email != "" {
				return OwnerRef{Email: o.Email}
			}
		}
	}

	if strings.Contains(tok, "@") {
		return OwnerRef{Email: tok}
	}

	return OwnerRef{}
}
