package hosting

import "context"

// LinkScope identifies who a sharing link grants access to.
type LinkScope string

const (
	// ScopeAnonymous links resolve for anyone holding the URL.
	ScopeAnonymous LinkScope = "anonymous"

	// ScopeOrganization links resolve for members of the tenant.
	ScopeOrganization LinkScope = "organization"
)

// DefaultScopeOrder is the order sharing scopes are tried in when
// creating a link; the first scope that yields one wins.
var DefaultScopeOrder = []LinkScope{ScopeAnonymous, ScopeOrganization}

// Item is an uploaded file as reported by the hosting service.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`

	// WebURL opens the file in the service's own UI.
	WebURL string `json:"webUrl,omitempty"`

	// DownloadURL is a pre-authenticated direct download link, when
	// the service exposes one. May be empty.
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// TokenSource supplies a bearer token for the hosting service.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Service is a file-hosting backend capable of turning bytes into a
// shareable URL.
type Service interface {
	// UploadReplace uploads data under the application folder. The same
	// filename overwrites any prior upload; there is no versioning.
	UploadReplace(ctx context.Context, name string, data []byte) (*Item, error)

	// Item fetches current metadata for an uploaded item, including a
	// direct download URL when available.
	Item(ctx context.Context, itemID string) (*Item, error)

	// CreateShareLink creates a sharing link for the item with the
	// given scope and returns its URL.
	CreateShareLink(ctx context.Context, itemID string, scope LinkScope) (string, error)
}
