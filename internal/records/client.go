package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const defaultAPIBaseURL = "https://api.airtable.com/v0"

// backendHTTPClient is a configured HTTP client with proper timeouts
var backendHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

// Config identifies the backend base and credential.
type Config struct {
	// APIBaseURL is the backend endpoint; empty selects the default.
	// Deployments that hide the secret token behind a proxy point this
	// at the proxy instead and leave Token empty.
	APIBaseURL string

	// Token is the bearer credential, if talking to the backend
	// directly rather than through a token-holding proxy.
	Token string

	// BaseID identifies the record base.
	BaseID string
}

// ConfigFromEnv reads the backend configuration from the environment.
func ConfigFromEnv() Config {
	return Config{
		APIBaseURL: os.Getenv("MAILTABLE_API_BASE_URL"),
		Token:      os.Getenv("MAILTABLE_API_TOKEN"),
		BaseID:     os.Getenv("MAILTABLE_BASE_ID"),
	}
}

// Complete reports whether enough configuration is present to reach
// the backend. A proxy deployment needs no token.
func (c Config) Complete() bool {
	return c.BaseID != "" && (c.Token != "" || c.APIBaseURL != "")
}

// Client talks to the tabular-record backend.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseID == "" {
		return nil, fmt.Errorf("base ID is required")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Client{
		cfg:    cfg,
		client: backendHTTPClient,
	}, nil
}

// CreateRecord creates one record in a table from a flat field map.
// A non-2xx response is propagated to the caller: the submission
// handler surfaces it, unlike the soft failures elsewhere in the
// pipeline.
func (c *Client) CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (*Record, error) {
	if table == "" {
		return nil, fmt.Errorf("table name is required")
	}

	payload, err := json.Marshal(createRequest{Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("failed to encode record fields: %w", err)
	}

	var record Record
	if err := c.do(ctx, http.MethodPost, c.tableURL(table), payload, &record); err != nil {
		return nil, fmt.Errorf("failed to create record in %s: %w", table, err)
	}

	return &record, nil
}

// ListRecords fetches one page of records from a table. The returned
// offset token is non-empty when more pages exist.
func (c *Client) ListRecords(ctx context.Context, table string, opts ListOptions) ([]Record, string, error) {
	if table == "" {
		return nil, "", fmt.Errorf("table name is required")
	}

	query := url.Values{}
	for _, f := range opts.Fields {
		query.Add("fields[]", f)
	}
	if opts.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Offset != "" {
		query.Set("offset", opts.Offset)
	}

	reqURL := c.tableURL(table)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var page listResponse
	if err := c.do(ctx, http.MethodGet, reqURL, nil, &page); err != nil {
		return nil, "", fmt.Errorf("failed to list records in %s: %w", table, err)
	}

	return page.Records, page.Offset, nil
}

// ListAllRecords walks the offset cursor until the backend reports no
// further pages.
func (c *Client) ListAllRecords(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	var all []Record
	offset := ""

	for {
		opts.Offset = offset
		page, next, err := c.ListRecords(ctx, table, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		offset = next
	}
}

// tableURL builds the endpoint URL for a table.
func (c *Client) tableURL(table string) string {
	return c.cfg.APIBaseURL + "/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(table)
}

// do performs one backend request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
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
