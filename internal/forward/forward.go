package forward

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailtable/mailtable/internal/links"
	"github.com/mailtable/mailtable/internal/logging"
	"github.com/mailtable/mailtable/internal/mailhost"
	"github.com/mailtable/mailtable/internal/records"
	"github.com/mailtable/mailtable/internal/refs"
)

// Kind selects the record entity a message is forwarded into.
type Kind string

const (
	KindTask Kind = "task"
	KindDoc  Kind = "doc"
	KindNote Kind = "note"
)

// ParseKind validates a user-supplied kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindTask:
		return KindTask, nil
	case KindDoc:
		return KindDoc, nil
	case KindNote:
		return KindNote, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want task, doc or note)", s)
	}
}

// Request describes one forwarding operation. Token fields carry raw
// user text, split and resolved against the loaded reference options.
type Request struct {
	MessageID string
	Kind      Kind

	Notes          string
	ProjectTokens  string
	AssigneeTokens string
	PeopleTokens   string
	Owner          string

	// AttachmentIDs selects attachments to deliver; empty means all
	// non-inline attachments. SkipAttachments suppresses delivery.
	AttachmentIDs   []string
	SkipAttachments bool

	// SkipLinks suppresses link extraction into the notes field.
	SkipLinks bool
}

// ResolvedLink pairs an extracted URL with its display title.
type ResolvedLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Result reports what a forwarding operation produced.
type Result struct {
	Record      *records.Record      `json:"record"`
	Table       string               `json:"table"`
	Links       []ResolvedLink       `json:"links,omitempty"`
	Attachments []records.Attachment `json:"attachments,omitempty"`
}

// Forward runs the full pipeline for one message and creates a record.
// Backend rejection propagates; everything else degrades to fewer
// links or attachments than selected.
func (s *Session) Forward(ctx context.Context, req Request) (*Result, error) {
	if req.MessageID == "" {
		return nil, fmt.Errorf("message ID is required")
	}
	if s.records == nil {
		return nil, fmt.Errorf("record backend is not configured")
	}

	table, err := s.table(req.Kind)
	if err != nil {
		return nil, err
	}

	msg, err := s.host.Message(ctx, req.MessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", req.MessageID, err)
	}

	var resolved []ResolvedLink
	if !req.SkipLinks {
		resolved = s.extractLinks(ctx, req.MessageID)
	}

	var delivered []records.Attachment
	if !req.SkipAttachments {
		delivered = s.deliverAttachments(ctx, req)
	}

	fields := s.buildFields(ctx, msg, req, resolved, delivered)

	record, err := s.records.CreateRecord(ctx, table, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", req.Kind, err)
	}

	s.logger.Info("message forwarded",
		logging.MessageID(req.MessageID),
		logging.Kind(string(req.Kind)),
		"record", record.ID,
		"links", len(resolved),
		"attachments", len(delivered))

	return &Result{
		Record:      record,
		Table:       table,
		Links:       resolved,
		Attachments: delivered,
	}, nil
}

// ExtractLinks extracts and titles the links of a message body. Body
// retrieval failure degrades to no links.
func (s *Session) ExtractLinks(ctx context.Context, messageID string) []ResolvedLink {
	return s.extractLinks(ctx, messageID)
}

func (s *Session) extractLinks(ctx context.Context, messageID string) []ResolvedLink {
	body, err := s.host.BodyText(ctx, messageID)
	if err != nil {
		s.logger.Warn("failed to fetch message body, continuing without links",
			logging.MessageID(messageID), logging.Err(err))
		return nil
	}

	candidates := links.Extract(body, links.DefaultMaxScanLength)
	if len(candidates) == 0 {
		return nil
	}

	s.titles.Prime(ctx, candidates)

	resolved := make([]ResolvedLink, len(candidates))
	for i, u := range candidates {
		resolved[i] = ResolvedLink{URL: u, Title: s.titles.Resolve(u)}
	}
	return resolved
}

// deliverAttachments lists, filters and delivers the selected
// attachments. Any failure degrades to fewer deliveries.
func (s *Session) deliverAttachments(ctx context.Context, req Request) []records.Attachment {
	handles, err := s.host.Attachments(ctx, req.MessageID)
	if err != nil {
		s.logger.Warn("failed to list attachments, continuing without them",
			logging.MessageID(req.MessageID), logging.Err(err))
		return nil
	}

	selected := make([]mailhost.AttachmentHandle, 0, len(handles))
	for _, h := range handles {
		if len(req.AttachmentIDs) > 0 && !containsString(req.AttachmentIDs, h.ID) {
			continue
		}
		selected = append(selected, *h)
	}
	if len(selected) == 0 {
		return nil
	}

	return s.deliverer.Deliver(ctx, req.MessageID, selected)
}

// buildFields assembles the flat field map the backend accepts.
func (s *Session) buildFields(ctx context.Context, msg *mailhost.Message, req Request, resolved []ResolvedLink, delivered []records.Attachment) map[string]interface{} {
	fields := map[string]interface{}{
		"Name": msg.Subject,
	}

	if notes := composeNotes(req.Notes, resolved); notes != "" {
		fields["Notes"] = notes
	}
	if msg.WebLink != "" {
		fields["Source"] = msg.WebLink
	}
	if msg.FromEmail != "" {
		fields["From"] = msg.FromEmail
	}

	if ids := refs.ResolveTokens(refs.SplitTokens(req.ProjectTokens), s.ProjectOptions(ctx)); len(ids) > 0 {
		fields["Projects"] = ids
	}
	if ids := refs.ResolveTokens(refs.SplitTokens(req.AssigneeTokens), s.CollaboratorOptions(ctx)); len(ids) > 0 {
		fields["Assignees"] = ids
	}
	if ids := refs.ResolveTokens(refs.SplitTokens(req.PeopleTokens), s.PeopleOptions(ctx)); len(ids) > 0 {
		fields["People"] = ids
	}

	if owner := refs.ResolveOwner(req.Owner, s.CollaboratorOptions(ctx)); !owner.IsZero() {
		if owner.ID != "" {
			fields["Owner"] = []string{owner.ID}
		} else {
			fields["Owner Email"] = owner.Email
		}
	}

	if len(delivered) > 0 {
		fields["Attachments"] = delivered
	}

	return fields
}

// composeNotes appends the titled link list to the free-text notes.
func composeNotes(notes string, resolved []ResolvedLink) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(notes))

	if len(resolved) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Links:")
		for _, l := range resolved {
			b.WriteString("\n- ")
			b.WriteString(l.Title)
			b.WriteString(": ")
			b.WriteString(l.URL)
		}
	}

	return b.String()
}

func (s *Session) table(kind Kind) (string, error) {
	switch kind {
	case KindTask:
		return s.tables.Tasks, nil
	case KindDoc:
		return s.tables.Docs, nil
	case KindNote:
		return s.tables.Notes, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want task, doc or note)", kind)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
