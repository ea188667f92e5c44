package records

// Record is one row of a table.
type Record struct {
	ID          string                 `json:"id"`
	CreatedTime string                 `json:"createdTime,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
}

// Attachment is the only attachment shape the backend accepts: a
// filename and an externally resolvable URL.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// ListOptions controls a single list page request.
type ListOptions struct {
	// Fields restricts which fields are returned.
	Fields []string

	// PageSize limits records per page (backend default when 0).
	PageSize int

	// Offset is the cursor token from a previous page.
	Offset string
}

// listResponse is the backend's list page envelope.
type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// createRequest is the backend's record-creation envelope.
type createRequest struct {
	Fields map[string]interface{} `json:"fields"`
}
