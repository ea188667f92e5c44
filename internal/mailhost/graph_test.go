package mailhost

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(_ context.Context) (string, error) {
	return s.token, s.err
}

func newTestHost(t *testing.T, handler http.HandlerFunc) (*GraphHost, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	host, err := NewGraphHost(staticTokens{token: "test-token"}, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("failed to create host: %v", err)
	}
	return host, srv
}

func TestNewGraphHostRequiresTokens(t *testing.T) {
	if _, err := NewGraphHost(nil); err == nil {
		t.Error("expected error for nil token source")
	}
}

func TestGraphHostMessage(t *testing.T) {
	host, _ := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          "msg1",
			"subject":     "Quarterly numbers",
			"webLink":     "https://outlook.example.com/msg1",
			"bodyPreview": "see attached",
			"from": map[string]interface{}{
				"emailAddress": map[string]string{
					"name":    "Jane Doe",
					"address": "jane@example.com",
				},
			},
		})
	})

	msg, err := host.Message(context.Background(), "msg1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "Quarterly numbers" {
		t.Errorf("expected subject, got %q", msg.Subject)
	}
	if msg.FromEmail != "jane@example.com" {
		t.Errorf("expected from email, got %q", msg.FromEmail)
	}
}

func TestGraphHostBodyText(t *testing.T) {
	host, _ := newTestHost(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Prefer"); got != `outlook.body-content-type="text"` {
			t.Errorf("expected text body preference, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "msg1",
			"body": map[string]string{
				"contentType": "text",
				"content":     "hello body",
			},
		})
	})

	body, err := host.BodyText(context.Background(), "msg1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "hello body" {
		t.Errorf("expected body text, got %q", body)
	}
}

func TestGraphHostAttachmentsFiltersInline(t *testing.T) {
	host, _ := newTestHost(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []map[string]interface{}{
				{"id": "a1", "name": "report.pdf", "contentType": "application/pdf", "size": 1024, "isInline": false},
				{"id": "a2", "name": "logo.png", "contentType": "image/png", "size": 200, "isInline": true},
				{"id": "a3", "name": "data.csv", "contentType": "text/csv", "size": 512, "isInline": false},
			},
		})
	})

	handles, err := host.Attachments(context.Background(), "msg1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(handles))
	}
	for _, h := range handles {
		if h.IsInline {
			t.Errorf("inline attachment %s leaked into handle list", h.ID)
		}
	}
	if handles[0].Name != "report.pdf" || handles[1].Name != "data.csv" {
		t.Errorf("unexpected handle order: %v, %v", handles[0].Name, handles[1].Name)
	}
}

func TestGraphHostAttachmentContent(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]interface{}
		wantKind ContentKind
		wantURL  string
		wantData string
	}{
		{
			name: "Reference attachment",
			response: map[string]interface{}{
				"@odata.type": "#microsoft.graph.referenceAttachment",
				"id":          "a1",
				"sourceUrl":   "https://host.example.com/file",
			},
			wantKind: ContentReference,
			wantURL:  "https://host.example.com/file",
		},
		{
			name: "File attachment",
			response: map[string]interface{}{
				"@odata.type":  "#microsoft.graph.fileAttachment",
				"id":           "a2",
				"contentBytes": "aGVsbG8=",
			},
			wantKind: ContentPayload,
			wantData: "aGVsbG8=",
		},
		{
			name: "Item attachment is unsupported",
			response: map[string]interface{}{
				"@odata.type": "#microsoft.graph.itemAttachment",
				"id":          "a3",
			},
			wantKind: ContentUnsupported,
		},
		{
			name: "Reference without source URL is unsupported",
			response: map[string]interface{}{
				"@odata.type": "#microsoft.graph.referenceAttachment",
				"id":          "a4",
			},
			wantKind: ContentUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, _ := newTestHost(t, func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(tt.response)
			})

			content, err := host.AttachmentContent(context.Background(), "msg1", "a")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if content.Kind != tt.wantKind {
				t.Errorf("expected kind %v, got %v", tt.wantKind, content.Kind)
			}
			if content.ReferenceURL != tt.wantURL {
				t.Errorf("expected reference URL %q, got %q", tt.wantURL, content.ReferenceURL)
			}
			if content.Payload != tt.wantData {
				t.Errorf("expected payload %q, got %q", tt.wantData, content.Payload)
			}
		})
	}
}

func TestGraphHostErrorStatus(t *testing.T) {
	host, _ := newTestHost(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := host.Message(context.Background(), "msg1"); err == nil {
		t.Error("expected error for non-2xx status")
	}
}
