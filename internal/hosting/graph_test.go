package hosting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(ctx context.Context) (string, error) {
	return s.token, s.err
}

func TestGraphDriveUploadReplace(t *testing.T) {
	var sessionRequests, putRequests int
	var gotContentRange string
	var gotSessionBody map[string]interface{}

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/me/drive/root:/", func(w http.ResponseWriter, r *http.Request) {
		sessionRequests++
		if r.Method != http.MethodPost {
			t.Errorf("session request method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
		}
		if !strings.Contains(r.URL.Path, "/createUploadSession") {
			t.Errorf("session path = %q, want createUploadSession suffix", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotSessionBody); err != nil {
			t.Fatalf("failed to decode session body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"uploadUrl": server.URL + "/upload-session",
		})
	})
	mux.HandleFunc("/upload-session", func(w http.ResponseWriter, r *http.Request) {
		putRequests++
		if r.Method != http.MethodPut {
			t.Errorf("upload method = %s, want PUT", r.Method)
		}
		gotContentRange = r.Header.Get("Content-Range")
		body, _ := io.ReadAll(r.Body)
		if string(body) != "hello world" {
			t.Errorf("upload body = %q, want %q", body, "hello world")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "item1",
			"name":   "report.pdf",
			"size":   11,
			"webUrl": "https://drive.example/report.pdf",
		})
	})

	d, err := NewGraphDrive(staticTokens{token: "tok"}, WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGraphDrive() error = %v", err)
	}

	item, err := d.UploadReplace(context.Background(), "report.pdf", []byte("hello world"))
	if err != nil {
		t.Fatalf("UploadReplace() error = %v", err)
	}

	if sessionRequests != 1 || putRequests != 1 {
		t.Errorf("requests = %d session, %d put, want 1 each", sessionRequests, putRequests)
	}
	if gotContentRange != "bytes 0-10/11" {
		t.Errorf("Content-Range = %q, want %q", gotContentRange, "bytes 0-10/11")
	}
	if item.ID != "item1" || item.WebURL != "https://drive.example/report.pdf" {
		t.Errorf("item = %+v, want id item1 with web URL", item)
	}

	itemBody, ok := gotSessionBody["item"].(map[string]interface{})
	if !ok {
		t.Fatalf("session body carried no item object: %v", gotSessionBody)
	}
	if itemBody["@microsoft.graph.conflictBehavior"] != "replace" {
		t.Errorf("conflictBehavior = %v, want replace", itemBody["@microsoft.graph.conflictBehavior"])
	}
}

func TestGraphDriveUploadReplaceValidation(t *testing.T) {
	d, err := NewGraphDrive(staticTokens{token: "tok"})
	if err != nil {
		t.Fatalf("NewGraphDrive() error = %v", err)
	}

	if _, err := d.UploadReplace(context.Background(), "", []byte("x")); err == nil {
		t.Error("UploadReplace() with empty name should fail")
	}
	if _, err := d.UploadReplace(context.Background(), "a.txt", nil); err == nil {
		t.Error("UploadReplace() with empty content should fail")
	}
}

func TestGraphDriveItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/drive/items/item1" {
			t.Errorf("path = %q, want /me/drive/items/item1", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                           "item1",
			"name":                         "report.pdf",
			"webUrl":                       "https://drive.example/report.pdf",
			"@microsoft.graph.downloadUrl": "https://download.example/report.pdf",
		})
	}))
	defer server.Close()

	d, err := NewGraphDrive(staticTokens{token: "tok"}, WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGraphDrive() error = %v", err)
	}

	item, err := d.Item(context.Background(), "item1")
	if err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if item.DownloadURL != "https://download.example/report.pdf" {
		t.Errorf("DownloadURL = %q, want the annotated download URL", item.DownloadURL)
	}
}

func TestGraphDriveCreateShareLink(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/drive/items/item1/createLink" {
			t.Errorf("path = %q, want createLink for item1", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode link body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"link": map[string]string{"webUrl": "https://share.example/abc"},
		})
	}))
	defer server.Close()

	d, err := NewGraphDrive(staticTokens{token: "tok"}, WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGraphDrive() error = %v", err)
	}

	link, err := d.CreateShareLink(context.Background(), "item1", ScopeAnonymous)
	if err != nil {
		t.Fatalf("CreateShareLink() error = %v", err)
	}
	if link != "https://share.example/abc" {
		t.Errorf("link = %q, want share URL", link)
	}
	if gotBody["type"] != "view" || gotBody["scope"] != "anonymous" {
		t.Errorf("link body = %v, want view/anonymous", gotBody)
	}
}

func TestGraphDriveCreateShareLinkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	d, err := NewGraphDrive(staticTokens{token: "tok"}, WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGraphDrive() error = %v", err)
	}

	if _, err := d.CreateShareLink(context.Background(), "item1", ScopeOrganization); err == nil {
		t.Error("CreateShareLink() should propagate HTTP errors")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"a/b.txt", "a_b.txt"},
		{"..\\evil", "__evil"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
