package hosting

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveService implements Service against the Google Drive API. It is
// the alternate hosting backend for deployments without a Microsoft
// drive. Uploads land in an application folder that is located or
// created on first use.
type DriveService struct {
	service *drive.Service
	folder  string
	domain  string

	folderID string
}

// DriveOption customizes a DriveService.
type DriveOption func(*DriveService)

// WithDriveFolder overrides the application folder name.
func WithDriveFolder(folder string) DriveOption {
	return func(d *DriveService) {
		d.folder = folder
	}
}

// WithDriveDomain sets the Workspace domain used for organization-scoped
// share links. Without it, organization links are unavailable.
func WithDriveDomain(domain string) DriveOption {
	return func(d *DriveService) {
		d.domain = domain
	}
}

// NewDriveService creates a Drive-backed hosting service from an
// authenticated HTTP client.
func NewDriveService(ctx context.Context, client *http.Client, opts ...DriveOption) (*DriveService, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	d := &DriveService{
		service: svc,
		folder:  DefaultFolder,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// UploadReplace uploads data into the application folder, overwriting
// an existing file of the same name.
func (d *DriveService) UploadReplace(ctx context.Context, name string, data []byte) (*Item, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file content is required")
	}

	name = sanitizeFilename(name)

	folderID, err := d.ensureFolder(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := d.findByName(ctx, folderID, name)
	if err != nil {
		return nil, err
	}

	// Untyped so it converts to googleapi.Field at the call sites.
	const fields = "id, name, size, webViewLink, webContentLink"

	var file *drive.File
	if existing != "" {
		file, err = d.service.Files.Update(existing, &drive.File{Name: name}).
			Context(ctx).
			Media(bytes.NewReader(data)).
			Fields(fields).
			Do()
	} else {
		file, err = d.service.Files.Create(&drive.File{Name: name, Parents: []string{folderID}}).
			Context(ctx).
			Media(bytes.NewReader(data)).
			Fields(fields).
			Do()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return convertDriveFile(file), nil
}

// Item fetches current metadata for an uploaded file.
func (d *DriveService) Item(ctx context.Context, itemID string) (*Item, error) {
	if itemID == "" {
		return nil, fmt.Errorf("itemID is required")
	}

	file, err := d.service.Files.Get(itemID).
		Context(ctx).
		Fields("id, name, size, webViewLink, webContentLink").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", itemID, err)
	}

	return convertDriveFile(file), nil
}

// CreateShareLink grants read access at the given scope and returns the
// file's view link. Drive expresses scopes as permission types: anyone
// for anonymous access, domain for the configured Workspace domain.
func (d *DriveService) CreateShareLink(ctx context.Context, itemID string, scope LinkScope) (string, error) {
	if itemID == "" {
		return "", fmt.Errorf("itemID is required")
	}

	permission := &drive.Permission{Role: "reader"}
	switch scope {
	case ScopeAnonymous:
		permission.Type = "anyone"
	case ScopeOrganization:
		if d.domain == "" {
			return "", fmt.Errorf("organization links require a configured domain")
		}
		permission.Type = "domain"
		permission.Domain = d.domain
	default:
		return "", fmt.Errorf("unsupported link scope %q", scope)
	}

	_, err := d.service.Permissions.Create(itemID, permission).
		Context(ctx).
		Fields("id").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create %s share link for %s: %w", scope, itemID, err)
	}

	file, err := d.service.Files.Get(itemID).
		Context(ctx).
		Fields("webViewLink").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to get view link for %s: %w", itemID, err)
	}
	if file.WebViewLink == "" {
		return "", fmt.Errorf("file %s carries no view link", itemID)
	}

	return file.WebViewLink, nil
}

// ensureFolder locates or creates the application folder and memoizes
// its ID for the lifetime of the service.
func (d *DriveService) ensureFolder(ctx context.Context) (string, error) {
	if d.folderID != "" {
		return d.folderID, nil
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(d.folder), folderMimeType)
	list, err := d.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id)").
		PageSize(1).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to locate folder %s: %w", d.folder, err)
	}

	if len(list.Files) > 0 {
		d.folderID = list.Files[0].Id
		return d.folderID, nil
	}

	folder, err := d.service.Files.Create(&drive.File{
		Name:     d.folder,
		MimeType: folderMimeType,
	}).Context(ctx).Fields("id").Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", d.folder, err)
	}

	d.folderID = folder.Id
	return d.folderID, nil
}

// findByName returns the ID of an existing file with the given name in
// the folder, or "" when none exists.
func (d *DriveService) findByName(ctx context.Context, folderID, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), folderID)
	list, err := d.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id)").
		PageSize(1).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search for %s: %w", name, err)
	}

	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func convertDriveFile(f *drive.File) *Item {
	return &Item{
		ID:          f.Id,
		Name:        f.Name,
		Size:        f.Size,
		WebURL:      f.WebViewLink,
		DownloadURL: f.WebContentLink,
	}
}

// escapeQuery escapes single quotes in Drive query string literals.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
