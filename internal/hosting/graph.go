package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

	// DefaultFolder is the application-managed folder uploads land in.
	DefaultFolder = "MailtableAttachments"
)

// hostingHTTPClient is a configured HTTP client with proper timeouts
var hostingHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

// GraphDrive implements Service against the Microsoft Graph drive API.
type GraphDrive struct {
	baseURL string
	folder  string
	client  *http.Client
	tokens  TokenSource
}

// GraphDriveOption customizes a GraphDrive.
type GraphDriveOption func(*GraphDrive)

// WithBaseURL overrides the Graph endpoint, mainly for tests.
func WithBaseURL(baseURL string) GraphDriveOption {
	return func(d *GraphDrive) {
		d.baseURL = baseURL
	}
}

// WithFolder overrides the application folder.
func WithFolder(folder string) GraphDriveOption {
	return func(d *GraphDrive) {
		d.folder = folder
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) GraphDriveOption {
	return func(d *GraphDrive) {
		d.client = client
	}
}

// NewGraphDrive creates a Graph-backed hosting service.
func NewGraphDrive(tokens TokenSource, opts ...GraphDriveOption) (*GraphDrive, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	d := &GraphDrive{
		baseURL: defaultGraphBaseURL,
		folder:  DefaultFolder,
		client:  hostingHTTPClient,
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// graphItem mirrors the subset of the driveItem resource we read.
type graphItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	WebURL      string `json:"webUrl"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl"`
}

func (i graphItem) toItem() *Item {
	return &Item{
		ID:          i.ID,
		Name:        i.Name,
		Size:        i.Size,
		WebURL:      i.WebURL,
		DownloadURL: i.DownloadURL,
	}
}

// UploadReplace uploads data via an upload session: session creation
// under the application folder with conflict behavior "replace", then
// the full byte range in a single request. Chunking is unnecessary
// because mail hosts cap attachment sizes far below the session limit.
func (d *GraphDrive) UploadReplace(ctx context.Context, name string, data []byte) (*Item, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file content is required")
	}

	name = sanitizeFilename(name)

	session, err := d.createUploadSession(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload session for %s: %w", name, err)
	}

	item, err := d.uploadBytes(ctx, session, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return item, nil
}

// createUploadSession negotiates an upload URL for a path under the
// application folder.
func (d *GraphDrive) createUploadSession(ctx context.Context, name string) (string, error) {
	payload := map[string]interface{}{
		"item": map[string]interface{}{
			"@microsoft.graph.conflictBehavior": "replace",
			"name":                              name,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode session request: %w", err)
	}

	path := fmt.Sprintf("/me/drive/root:/%s/%s:/createUploadSession",
		url.PathEscape(d.folder), url.PathEscape(name))

	var session struct {
		UploadURL string `json:"uploadUrl"`
	}
	if err := d.do(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body), "application/json", nil, &session); err != nil {
		return "", err
	}
	if session.UploadURL == "" {
		return "", fmt.Errorf("upload session response carried no upload URL")
	}

	return session.UploadURL, nil
}

// uploadBytes sends the whole byte range to the session URL.
func (d *GraphDrive) uploadBytes(ctx context.Context, uploadURL string, data []byte) (*Item, error) {
	contentRange := fmt.Sprintf("bytes 0-%d/%d", len(data)-1, len(data))
	headers := map[string]string{"Content-Range": contentRange}

	var item graphItem
	if err := d.do(ctx, http.MethodPut, uploadURL, bytes.NewReader(data), "application/octet-stream", headers, &item); err != nil {
		return nil, err
	}

	return item.toItem(), nil
}

// Item fetches current metadata for an uploaded item. The response
// carries a pre-authenticated download URL when the service grants one.
func (d *GraphDrive) Item(ctx context.Context, itemID string) (*Item, error) {
	if itemID == "" {
		return nil, fmt.Errorf("itemID is required")
	}

	var item graphItem
	reqURL := d.baseURL + "/me/drive/items/" + url.PathEscape(itemID)
	if err := d.do(ctx, http.MethodGet, reqURL, nil, "", nil, &item); err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}

	return item.toItem(), nil
}

// CreateShareLink creates a view-only sharing link with the given scope.
func (d *GraphDrive) CreateShareLink(ctx context.Context, itemID string, scope LinkScope) (string, error) {
	if itemID == "" {
		return "", fmt.Errorf("itemID is required")
	}

	body, err := json.Marshal(map[string]string{
		"type":  "view",
		"scope": string(scope),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode link request: %w", err)
	}

	var result struct {
		Link struct {
			WebURL string `json:"webUrl"`
		} `json:"link"`
	}
	reqURL := d.baseURL + "/me/drive/items/" + url.PathEscape(itemID) + "/createLink"
	if err := d.do(ctx, http.MethodPost, reqURL, bytes.NewReader(body), "application/json", nil, &result); err != nil {
		return "", fmt.Errorf("failed to create %s share link for %s: %w", scope, itemID, err)
	}
	if result.Link.WebURL == "" {
		return "", fmt.Errorf("share link response carried no URL")
	}

	return result.Link.WebURL, nil
}

// do performs one authenticated request and decodes the JSON response.
func (d *GraphDrive) do(ctx context.Context, method, reqURL string, body io.Reader, contentType string, headers map[string]string, out interface{}) error {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("http status %s", res.Status)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// sanitizeFilename strips path separators so a hostile filename cannot
// escape the application folder.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return name
}
