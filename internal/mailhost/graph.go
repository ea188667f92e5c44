package mailhost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// Graph attachment OData types we know how to handle.
const (
	odataFileAttachment      = "#microsoft.graph.fileAttachment"
	odataReferenceAttachment = "#microsoft.graph.referenceAttachment"
)

// secureHTTPClient is a configured HTTP client with proper timeouts
var secureHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     false,
	},
}

// TokenSource supplies a bearer token for the Graph mail endpoints.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// GraphHost implements Host against the Microsoft Graph mail API.
type GraphHost struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// GraphOption customizes a GraphHost.
type GraphOption func(*GraphHost)

// WithBaseURL overrides the Graph endpoint, mainly for tests.
func WithBaseURL(baseURL string) GraphOption {
	return func(h *GraphHost) {
		h.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) GraphOption {
	return func(h *GraphHost) {
		h.client = client
	}
}

// NewGraphHost creates a Host backed by the Microsoft Graph mail API.
func NewGraphHost(tokens TokenSource, opts ...GraphOption) (*GraphHost, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	h := &GraphHost{
		baseURL: defaultGraphBaseURL,
		client:  secureHTTPClient,
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// graphMessage mirrors the subset of the Graph message resource we read.
type graphMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	WebLink string `json:"webLink"`
	Preview string `json:"bodyPreview"`
	From    struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

// graphAttachment mirrors the Graph attachment resource.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	IsInline     bool   `json:"isInline"`
	ContentBytes string `json:"contentBytes"`
	SourceURL    string `json:"sourceUrl"`
}

// Message retrieves metadata for a message.
func (h *GraphHost) Message(ctx context.Context, messageID string) (*Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	var msg graphMessage
	path := fmt.Sprintf("/me/messages/%s?$select=subject,from,webLink,bodyPreview", url.PathEscape(messageID))
	if err := h.get(ctx, path, "", &msg); err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	return &Message{
		ID:        msg.ID,
		Subject:   msg.Subject,
		FromName:  msg.From.EmailAddress.Name,
		FromEmail: msg.From.EmailAddress.Address,
		WebLink:   msg.WebLink,
		Preview:   msg.Preview,
	}, nil
}

// BodyText retrieves the message body as plain text. The Prefer header
// asks Graph to down-convert HTML bodies on the server side.
func (h *GraphHost) BodyText(ctx context.Context, messageID string) (string, error) {
	if messageID == "" {
		return "", fmt.Errorf("messageID is required")
	}

	var msg graphMessage
	path := fmt.Sprintf("/me/messages/%s?$select=body", url.PathEscape(messageID))
	if err := h.get(ctx, path, `outlook.body-content-type="text"`, &msg); err != nil {
		return "", fmt.Errorf("failed to get body for message %s: %w", messageID, err)
	}

	return msg.Body.Content, nil
}

// Attachments lists the message's attachments, excluding inline items.
func (h *GraphHost) Attachments(ctx context.Context, messageID string) ([]*AttachmentHandle, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	var result struct {
		Value []graphAttachment `json:"value"`
	}
	path := fmt.Sprintf("/me/messages/%s/attachments?$select=id,name,contentType,size,isInline", url.PathEscape(messageID))
	if err := h.get(ctx, path, "", &result); err != nil {
		return nil, fmt.Errorf("failed to list attachments for message %s: %w", messageID, err)
	}

	var handles []*AttachmentHandle
	for _, a := range result.Value {
		if a.IsInline {
			continue
		}
		handles = append(handles, &AttachmentHandle{
			ID:          a.ID,
			Name:        a.Name,
			ContentType: a.ContentType,
			Size:        a.Size,
			IsInline:    a.IsInline,
		})
	}

	return handles, nil
}

// AttachmentContent retrieves the content of a single attachment and
// maps it onto the closed content union.
func (h *GraphHost) AttachmentContent(ctx context.Context, messageID, attachmentID string) (AttachmentContent, error) {
	if messageID == "" {
		return AttachmentContent{}, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return AttachmentContent{}, fmt.Errorf("attachmentID is required")
	}

	var a graphAttachment
	path := fmt.Sprintf("/me/messages/%s/attachments/%s", url.PathEscape(messageID), url.PathEscape(attachmentID))
	if err := h.get(ctx, path, "", &a); err != nil {
		return AttachmentContent{}, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	switch a.ODataType {
	case odataReferenceAttachment:
		if a.SourceURL == "" {
			return AttachmentContent{Kind: ContentUnsupported, Cause: "reference attachment without source URL"}, nil
		}
		return AttachmentContent{Kind: ContentReference, ReferenceURL: a.SourceURL}, nil

	case odataFileAttachment:
		if a.ContentBytes == "" {
			return AttachmentContent{Kind: ContentUnsupported, Cause: "file attachment without content bytes"}, nil
		}
		return AttachmentContent{Kind: ContentPayload, Payload: a.ContentBytes}, nil

	default:
		return AttachmentContent{Kind: ContentUnsupported, Cause: fmt.Sprintf("unrecognized attachment type %s", a.ODataType)}, nil
	}
}

// get performs an authenticated GET against the Graph API and decodes
// the JSON response into out.
func (h *GraphHost) get(ctx context.Context, path, prefer string, out interface{}) error {
	token, err := h.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("http status %s", res.Status)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
