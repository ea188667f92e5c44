package msauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/oauth2"

	"github.com/mailtable/mailtable/internal/instrumentation"
)

func TestConfigComplete(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{"complete", Config{ClientID: "id", TenantID: "tenant", RedirectURL: "http://localhost/cb"}, true},
		{"missing client", Config{TenantID: "tenant", RedirectURL: "http://localhost/cb"}, false},
		{"missing tenant", Config{ClientID: "id", RedirectURL: "http://localhost/cb"}, false},
		{"missing redirect", Config{ClientID: "id", TenantID: "tenant"}, false},
		{"empty", Config{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenFailsFastWithoutConfig(t *testing.T) {
	b := NewBroker(Config{}, nil, WithCacheDir(t.TempDir()))

	_, err := b.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() error = %v, want ErrNoToken", err)
	}
}

func TestTokenReturnsErrNoTokenWithoutCachedCredentials(t *testing.T) {
	config := Config{ClientID: "id", TenantID: "tenant", RedirectURL: "http://localhost/cb"}
	b := NewBroker(config, nil, WithCacheDir(t.TempDir()))

	_, err := b.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() error = %v, want ErrNoToken", err)
	}
}

func newTokenServer(t *testing.T, accessToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  accessToken,
			"token_type":    "Bearer",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}))
}

func TestTokenSilentReacquisition(t *testing.T) {
	server := newTokenServer(t, "fresh-access")
	defer server.Close()

	cacheDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cacheDir, tokenFileName), []byte("stale-access old-refresh"), 0600); err != nil {
		t.Fatal(err)
	}

	config := Config{ClientID: "id", TenantID: "tenant", RedirectURL: "http://localhost/cb"}
	b := NewBroker(config, nil,
		WithCacheDir(cacheDir),
		WithEndpoint(oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"}))

	tok, err := b.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok != "fresh-access" {
		t.Errorf("Token() = %q, want refreshed token", tok)
	}

	// Memoized: a second call returns the same token without config.
	tok2, err := b.Token(context.Background())
	if err != nil || tok2 != tok {
		t.Errorf("second Token() = %q, %v, want memoized %q", tok2, err, tok)
	}

	// Refreshed token persisted for the next process.
	data, err := os.ReadFile(filepath.Join(cacheDir, tokenFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fresh-access refresh-1" {
		t.Errorf("persisted token = %q, want refreshed pair", data)
	}
}

func TestTokenAdoptsPendingAuthCode(t *testing.T) {
	server := newTokenServer(t, "exchanged-access")
	defer server.Close()

	cacheDir := t.TempDir()
	config := Config{ClientID: "id", TenantID: "tenant", RedirectURL: "http://localhost/cb"}
	b := NewBroker(config, nil,
		WithCacheDir(cacheDir),
		WithEndpoint(oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"}))

	if err := b.SavePendingAuthCode("code-123"); err != nil {
		t.Fatalf("SavePendingAuthCode() error = %v", err)
	}

	tok, err := b.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok != "exchanged-access" {
		t.Errorf("Token() = %q, want exchanged token", tok)
	}

	// Pending code is consumed.
	if _, err := os.Stat(filepath.Join(cacheDir, pendingFileName)); !os.IsNotExist(err) {
		t.Error("pending authorization code should be removed after adoption")
	}
}

type fakeAuthorizer struct {
	code string
	err  error
	urls []string
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, authURL string) (string, error) {
	f.urls = append(f.urls, authURL)
	return f.code, f.err
}

func TestTokenInteractiveAcquisition(t *testing.T) {
	server := newTokenServer(t, "interactive-access")
	defer server.Close()

	auth := &fakeAuthorizer{code: "code-456"}
	config := Config{ClientID: "id", TenantID: "tenant", RedirectURL: "http://localhost/cb"}
	b := NewBroker(config, nil,
		WithCacheDir(t.TempDir()),
		WithAuthorizer(auth),
		WithEndpoint(oauth2.Endpoint{AuthURL: server.URL + "/auth", TokenURL: server.URL + "/token"}))

	tok, err := b.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok != "interactive-access" {
		t.Errorf("Token() = %q, want interactive token", tok)
	}
	if len(auth.urls) != 1 {
		t.Errorf("authorizer invoked %d times, want 1", len(auth.urls))
	}
}

func TestTokenInteractiveFailureYieldsErrNoToken(t *testing.T) {
	auth := &fakeAuthorizer{err: errors.New("user closed the window")}
	config := Config{ClientID: "id", TenantID: "tenant", RedirectURL: "http://localhost/cb"}
	b := NewBroker(config, nil, WithCacheDir(t.TempDir()), WithAuthorizer(auth))

	_, err := b.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() error = %v, want ErrNoToken", err)
	}
}

func TestSavePendingAuthCodeValidation(t *testing.T) {
	b := NewBroker(Config{}, nil, WithCacheDir(t.TempDir()))

	if err := b.SavePendingAuthCode("  "); err == nil {
		t.Error("SavePendingAuthCode() with blank code should fail")
	}
}

func TestHasToken(t *testing.T) {
	cacheDir := t.TempDir()
	b := NewBroker(Config{}, nil, WithCacheDir(cacheDir))

	if b.HasToken() {
		t.Error("HasToken() should be false without a token file")
	}

	if err := os.WriteFile(filepath.Join(cacheDir, tokenFileName), []byte("a b"), 0600); err != nil {
		t.Fatal(err)
	}
	if !b.HasToken() {
		t.Error("HasToken() should be true with a token file")
	}
}

func TestAuthURLRequiresConfig(t *testing.T) {
	b := NewBroker(Config{}, nil, WithCacheDir(t.TempDir()))
	if got := b.AuthURL(); got != "" {
		t.Errorf("AuthURL() = %q, want empty for incomplete config", got)
	}
}

func TestAuthURLCarriesClientID(t *testing.T) {
	cfg := Config{ClientID: "client", TenantID: "tenant", RedirectURL: "http://localhost/cb"}
	b := NewBroker(cfg, nil, WithCacheDir(t.TempDir()))

	url := b.AuthURL()
	if url == "" || !strings.Contains(url, "client_id=client") {
		t.Errorf("AuthURL() = %q, want authorization URL carrying the client ID", url)
	}
}

func TestTokenWithMetricsRecorder(t *testing.T) {
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	b := NewBroker(Config{}, nil, WithCacheDir(t.TempDir()))
	b.SetMetrics(metrics)

	// The noop meter only proves the recording path runs cleanly.
	if _, err := b.Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() error = %v, want ErrNoToken", err)
	}
}
