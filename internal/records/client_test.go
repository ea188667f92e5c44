package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		APIBaseURL: srv.URL,
		Token:      "key-test",
		BaseID:     "appBase1",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestNewClientRequiresBaseID(t *testing.T) {
	if _, err := NewClient(Config{Token: "key"}); err == nil {
		t.Error("expected error for missing base ID")
	}
}

func TestConfigComplete(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected bool
	}{
		{"Token and base", Config{Token: "k", BaseID: "b"}, true},
		{"Proxy and base", Config{APIBaseURL: "https://proxy", BaseID: "b"}, true},
		{"Missing base", Config{Token: "k"}, false},
		{"Missing credential and proxy", Config{BaseID: "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Complete(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCreateRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/appBase1/Tasks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-test" {
			t.Errorf("expected bearer auth, got %q", got)
		}

		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Fields["Name"] != "My Task" {
			t.Errorf("unexpected fields: %v", req.Fields)
		}

		_ = json.NewEncoder(w).Encode(Record{ID: "recNew1", Fields: req.Fields})
	})

	rec, err := c.CreateRecord(context.Background(), "Tasks", map[string]interface{}{"Name": "My Task"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "recNew1" {
		t.Errorf("expected recNew1, got %s", rec.ID)
	}
}

func TestCreateRecordPropagatesRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	if _, err := c.CreateRecord(context.Background(), "Tasks", nil); err == nil {
		t.Error("expected error for backend rejection")
	}
}

func TestListRecordsPagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "":
			_ = json.NewEncoder(w).Encode(listResponse{
				Records: []Record{{ID: "rec1"}, {ID: "rec2"}},
				Offset:  "page2",
			})
		case "page2":
			_ = json.NewEncoder(w).Encode(listResponse{
				Records: []Record{{ID: "rec3"}},
			})
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	all, err := c.ListAllRecords(context.Background(), "People", ListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[2].ID != "rec3" {
		t.Errorf("expected rec3 last, got %s", all[2].ID)
	}
}

func TestListRecordsFieldsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fields := r.URL.Query()["fields[]"]
		if len(fields) != 2 || fields[0] != "Name" || fields[1] != "Email" {
			t.Errorf("unexpected fields query: %v", fields)
		}
		_ = json.NewEncoder(w).Encode(listResponse{})
	})

	_, _, err := c.ListRecords(context.Background(), "People", ListOptions{Fields: []string{"Name", "Email"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
