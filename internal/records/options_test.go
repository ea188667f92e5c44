package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoadOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(listResponse{
			Records: []Record{
				{ID: "rec1", Fields: map[string]interface{}{"Name": "Jane Doe", "Email": "jane@x.com"}},
				{ID: "rec2", Fields: map[string]interface{}{"Name": "Bob Smith"}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIBaseURL: srv.URL, Token: "k", BaseID: "app1"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	opts := LoadOptions(context.Background(), c, OptionTable{
		Table:      "People",
		NameField:  "Name",
		EmailField: "Email",
	}, nil)

	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if opts[0].ID != "rec1" || opts[0].DisplayName != "Jane Doe" || opts[0].Email != "jane@x.com" {
		t.Errorf("unexpected first option: %+v", opts[0])
	}
	if opts[1].Email != "" {
		t.Errorf("expected empty email, got %q", opts[1].Email)
	}
}

func TestLoadOptionsMissingConfiguration(t *testing.T) {
	if got := LoadOptions(context.Background(), nil, OptionTable{Table: "People"}, nil); got != nil {
		t.Errorf("expected nil options without a client, got %v", got)
	}

	c, err := NewClient(Config{APIBaseURL: "http://unused", BaseID: "app1"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if got := LoadOptions(context.Background(), c, OptionTable{}, nil); got != nil {
		t.Errorf("expected nil options without a table, got %v", got)
	}
}

func TestLoadOptionsBackendFailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIBaseURL: srv.URL, Token: "k", BaseID: "app1"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if got := LoadOptions(context.Background(), c, OptionTable{Table: "People", NameField: "Name"}, nil); got != nil {
		t.Errorf("expected nil options on backend failure, got %v", got)
	}
}
