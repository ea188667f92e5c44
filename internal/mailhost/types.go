package mailhost

import "context"

// AttachmentHandle describes an attachment as listed by the host mail API.
// Handles are immutable; content is fetched separately per delivery attempt.
type AttachmentHandle struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	IsInline    bool   `json:"isInline"`
}

// Message holds the metadata of a mail message.
type Message struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	FromName  string `json:"fromName"`
	FromEmail string `json:"fromEmail"`
	WebLink   string `json:"webLink"`
	Preview   string `json:"preview"`
}

// ContentKind tags the transport shape of retrieved attachment content.
type ContentKind int

const (
	// ContentUnsupported means the host reported a failure or an
	// unrecognized format for this attachment.
	ContentUnsupported ContentKind = iota

	// ContentReference means the host exposes the attachment as an
	// externally resolvable URL; no upload is needed.
	ContentReference

	// ContentPayload means the attachment bytes are embedded as an
	// encoded text payload and must be uploaded elsewhere before they
	// can be shared as a URL.
	ContentPayload
)

// AttachmentContent is the content of one attachment as returned by the
// host. It is a closed tagged union: exactly one of ReferenceURL or
// Payload is meaningful, selected by Kind. Content values are transient
// and never persisted.
type AttachmentContent struct {
	Kind ContentKind

	// ReferenceURL is set when Kind is ContentReference.
	ReferenceURL string

	// Payload holds the encoded bytes when Kind is ContentPayload.
	// Use DecodePayload to obtain the raw buffer.
	Payload string

	// Cause optionally describes why the content is unsupported.
	Cause string
}

// Host is the mailbox service surface used by the pipeline.
type Host interface {
	// Message retrieves metadata for a message.
	Message(ctx context.Context, messageID string) (*Message, error)

	// BodyText retrieves the message body as plain text.
	BodyText(ctx context.Context, messageID string) (string, error)

	// Attachments lists the message's attachments. Inline items are
	// filtered out; they never appear anywhere attachments are offered.
	Attachments(ctx context.Context, messageID string) ([]*AttachmentHandle, error)

	// AttachmentContent retrieves the content of a single attachment.
	// An unrecognized format yields ContentUnsupported, not an error;
	// errors are reserved for transport failures.
	AttachmentContent(ctx context.Context, messageID, attachmentID string) (AttachmentContent, error)
}
