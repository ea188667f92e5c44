package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailtable/mailtable/internal/hosting"
	"github.com/mailtable/mailtable/internal/instrumentation"
	"github.com/mailtable/mailtable/internal/logging"
	"github.com/mailtable/mailtable/internal/mailhost"
	"github.com/mailtable/mailtable/internal/records"
)

// TokenSource yields an access token for the hosting service.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ContentFetcher retrieves per-attachment content from the mail host.
// mailhost.Host satisfies it.
type ContentFetcher interface {
	AttachmentContent(ctx context.Context, messageID, attachmentID string) (mailhost.AttachmentContent, error)
}

// Pipeline delivers attachments for one mail host and hosting backend.
type Pipeline struct {
	host    ContentFetcher
	hosting hosting.Service
	tokens  TokenSource
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewPipeline creates a delivery pipeline. A nil logger falls back to
// the default slog logger.
func NewPipeline(host ContentFetcher, hostingService hosting.Service, tokens TokenSource, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		host:    host,
		hosting: hostingService,
		tokens:  tokens,
		logger:  logger,
	}
}

// SetMetrics attaches the metrics recorder. Call before the first
// Deliver; a nil recorder disables delivery metrics.
func (p *Pipeline) SetMetrics(m *instrumentation.Metrics) {
	p.metrics = m
}

// ItemResult pairs an attachment ID with its delivery outcome. A nil
// Attachment means the item was skipped.
type ItemResult struct {
	ID         string
	Attachment *records.Attachment
}

// Deliver processes the selected attachments sequentially and returns
// the delivered {filename, url} pairs in input order.
func (p *Pipeline) Deliver(ctx context.Context, messageID string, attachments []mailhost.AttachmentHandle) []records.Attachment {
	var delivered []records.Attachment
	for _, r := range p.DeliverResults(ctx, messageID, attachments) {
		if r.Attachment != nil {
			delivered = append(delivered, *r.Attachment)
		}
	}
	return delivered
}

// DeliverResults processes the selected attachments sequentially and
// returns one result per input, keyed by attachment ID. Per-item
// failures downgrade that item to skipped and the batch continues. A
// missing hosting token is checked once per batch: if any attachment
// carries an embedded payload, the whole batch yields no deliveries.
func (p *Pipeline) DeliverResults(ctx context.Context, messageID string, attachments []mailhost.AttachmentHandle) []ItemResult {
	if len(attachments) == 0 {
		return nil
	}

	_, tokenErr := p.tokens.Token(ctx)
	hasToken := tokenErr == nil
	if !hasToken {
		p.logger.Info("no hosting token available, payload attachments will not be delivered")
	}

	results := make([]ItemResult, 0, len(attachments))
	for _, att := range attachments {
		result, err := p.deliverOne(ctx, messageID, att, hasToken)
		if err != nil {
			// Missing token aborts the batch, not just the item.
			return allSkipped(attachments)
		}
		results = append(results, ItemResult{ID: att.ID, Attachment: result})
	}

	return results
}

// allSkipped marks every item of an aborted batch as skipped.
func allSkipped(attachments []mailhost.AttachmentHandle) []ItemResult {
	results := make([]ItemResult, 0, len(attachments))
	for _, att := range attachments {
		results = append(results, ItemResult{ID: att.ID})
	}
	return results
}

// errNoBatchToken aborts the batch when a payload attachment meets a
// missing token.
var errNoBatchToken = fmt.Errorf("hosting token required for payload attachments")

// deliverOne runs the per-attachment state machine. A nil result with
// nil error means the item was skipped.
func (p *Pipeline) deliverOne(ctx context.Context, messageID string, att mailhost.AttachmentHandle, hasToken bool) (*records.Attachment, error) {
	content, err := p.host.AttachmentContent(ctx, messageID, att.ID)
	if err != nil {
		p.logger.Warn("failed to fetch attachment content, skipping",
			"attachment", att.Name, logging.Err(err))
		p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeSkipped, instrumentation.RouteNone, 0)
		return nil, nil
	}

	switch content.Kind {
	case mailhost.ContentReference:
		// The host guarantees the reference resolves externally.
		p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeDelivered, instrumentation.RouteReference, 0)
		return &records.Attachment{Filename: att.Name, URL: content.ReferenceURL}, nil

	case mailhost.ContentPayload:
		if !hasToken {
			p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeSkipped, instrumentation.RouteNone, 0)
			return nil, errNoBatchToken
		}
		url, ok := p.uploadPayload(ctx, att, content.Payload)
		if !ok {
			return nil, nil
		}
		return &records.Attachment{Filename: att.Name, URL: url}, nil

	default:
		p.logger.Warn("unsupported attachment content, skipping",
			"attachment", att.Name, "cause", content.Cause)
		p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeSkipped, instrumentation.RouteNone, 0)
		return nil, nil
	}
}

// uploadPayload uploads decoded bytes and resolves a shareable URL
// through the fallback ladder.
func (p *Pipeline) uploadPayload(ctx context.Context, att mailhost.AttachmentHandle, payload string) (string, bool) {
	data, err := mailhost.DecodePayload(payload)
	if err != nil {
		p.logger.Warn("failed to decode attachment payload, skipping",
			"attachment", att.Name, logging.Err(err))
		p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeSkipped, instrumentation.RouteNone, 0)
		return "", false
	}
	size := int64(len(data))

	uploaded, err := p.hosting.UploadReplace(ctx, att.Name, data)
	if err != nil {
		p.logger.Warn("failed to upload attachment, skipping",
			"attachment", att.Name, logging.Err(err))
		p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeSkipped, instrumentation.RouteNone, 0)
		return "", false
	}

	if url, ok := p.directDownloadURL(ctx, uploaded.ID); ok {
		p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeDelivered, instrumentation.RouteDownloadURL, size)
		return url, true
	}

	for _, scope := range hosting.DefaultScopeOrder {
		link, err := p.hosting.CreateShareLink(ctx, uploaded.ID, scope)
		if err != nil {
			p.logger.Debug("share link creation failed",
				"attachment", att.Name, "scope", scope, logging.Err(err))
			continue
		}
		p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeDelivered, instrumentation.RouteShareLink, size)
		return link, true
	}

	if uploaded.WebURL != "" {
		p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeDelivered, instrumentation.RouteWebURL, size)
		return uploaded.WebURL, true
	}

	p.logger.Warn("no shareable URL for uploaded attachment, skipping",
		"attachment", att.Name)
	p.metrics.RecordAttachmentDelivery(ctx, instrumentation.OutcomeSkipped, instrumentation.RouteNone, 0)
	return "", false
}

// directDownloadURL fetches the item once and returns its
// pre-authenticated download URL when the service grants one.
func (p *Pipeline) directDownloadURL(ctx context.Context, itemID string) (string, bool) {
	item, err := p.hosting.Item(ctx, itemID)
	if err != nil {
		p.logger.Debug("item metadata fetch failed", "item", itemID, logging.Err(err))
		return "", false
	}
	if item.DownloadURL == "" {
		return "", false
	}
	return item.DownloadURL, true
}
