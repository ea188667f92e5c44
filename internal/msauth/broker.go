package msauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/mailtable/mailtable/internal/instrumentation"
	"github.com/mailtable/mailtable/internal/logging"
)

// ErrNoToken signals that no access token could be acquired. Callers
// treat it as a skip condition, never a fatal error.
var ErrNoToken = errors.New("no access token available")

const (
	tokenFileName   = "graph.token"
	pendingFileName = "graph.authcode"
)

// Config holds the application identity for the Microsoft identity
// platform.
type Config struct {
	ClientID    string
	TenantID    string
	RedirectURL string
}

// ConfigFromEnv reads the Graph application identity from the environment.
func ConfigFromEnv() Config {
	return Config{
		ClientID:    os.Getenv("MAILTABLE_MSGRAPH_CLIENT_ID"),
		TenantID:    os.Getenv("MAILTABLE_MSGRAPH_TENANT_ID"),
		RedirectURL: os.Getenv("MAILTABLE_MSGRAPH_REDIRECT_URL"),
	}
}

// Complete reports whether the configuration can drive an OAuth flow.
func (c Config) Complete() bool {
	return c.ClientID != "" && c.TenantID != "" && c.RedirectURL != ""
}

// Authorizer performs an interactive authorization: it presents the
// URL to the user and returns the resulting authorization code.
type Authorizer interface {
	Authorize(ctx context.Context, authURL string) (string, error)
}

// Broker produces access tokens for the Graph APIs. The zero value is
// not usable; construct with NewBroker.
type Broker struct {
	config     Config
	logger     *slog.Logger
	authorizer Authorizer
	cacheDir   string

	endpoint *oauth2.Endpoint

	mu      sync.Mutex
	token   string
	oauth   *oauth2.Config
	metrics *instrumentation.Metrics
}

// BrokerOption customizes a Broker.
type BrokerOption func(*Broker)

// WithAuthorizer enables interactive authorization as the last rung of
// the acquisition ladder. Without one, acquisition ends at silent
// reacquisition.
func WithAuthorizer(a Authorizer) BrokerOption {
	return func(b *Broker) {
		b.authorizer = a
	}
}

// WithEndpoint overrides the identity provider endpoint, mainly for
// tests.
func WithEndpoint(endpoint oauth2.Endpoint) BrokerOption {
	return func(b *Broker) {
		b.endpoint = &endpoint
	}
}

// WithCacheDir overrides the token cache directory, mainly for tests.
func WithCacheDir(dir string) BrokerOption {
	return func(b *Broker) {
		b.cacheDir = dir
	}
}

// NewBroker creates a token broker. A nil logger falls back to the
// default slog logger.
func NewBroker(config Config, logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		config:   config,
		logger:   logger,
		cacheDir: filepath.Join(userCacheDir(), "mailtable"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetMetrics attaches the metrics recorder. A nil recorder disables
// acquisition metrics.
func (b *Broker) SetMetrics(m *instrumentation.Metrics) {
	b.mu.Lock()
	b.metrics = m
	b.mu.Unlock()
}

// Token returns an access token for the Graph APIs, or ErrNoToken.
// The first successful acquisition is memoized for the process
// lifetime; the backend rejects expired tokens and a restart is the
// recovery path, matching how the token is actually used.
func (b *Broker) Token(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.token != "" {
		b.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenMethodMemoized, instrumentation.StatusSuccess)
		return b.token, nil
	}

	if !b.config.Complete() {
		b.logger.Debug("graph identity not configured, skipping token acquisition")
		b.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenMethodNone, "failure")
		return "", ErrNoToken
	}

	b.ensureOAuthConfig()

	if tok, ok := b.adoptPendingAuthCode(ctx); ok {
		b.token = tok
		b.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenMethodPending, instrumentation.StatusSuccess)
		return b.token, nil
	}

	if tok, ok := b.silentToken(ctx); ok {
		b.token = tok
		b.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenMethodSilent, instrumentation.StatusSuccess)
		return b.token, nil
	}

	if tok, ok := b.interactiveToken(ctx); ok {
		b.token = tok
		b.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenMethodInteractive, instrumentation.StatusSuccess)
		return b.token, nil
	}

	b.metrics.RecordTokenAcquisition(ctx, instrumentation.TokenMethodNone, "failure")
	return "", ErrNoToken
}

// ensureOAuthConfig lazily constructs the oauth2 client configuration.
func (b *Broker) ensureOAuthConfig() {
	if b.oauth != nil {
		return
	}
	endpoint := microsoft.AzureADEndpoint(b.config.TenantID)
	if b.endpoint != nil {
		endpoint = *b.endpoint
	}
	b.oauth = &oauth2.Config{
		ClientID:    b.config.ClientID,
		Endpoint:    endpoint,
		RedirectURL: b.config.RedirectURL,
		Scopes: []string{
			"https://graph.microsoft.com/Mail.Read",
			"https://graph.microsoft.com/Files.ReadWrite",
			"offline_access",
		},
	}
}

// adoptPendingAuthCode consumes an authorization code left behind by a
// redirect completion (the authorize command) and exchanges it.
func (b *Broker) adoptPendingAuthCode(ctx context.Context) (string, bool) {
	pendingFile := filepath.Join(b.cacheDir, pendingFileName)
	code, err := os.ReadFile(pendingFile)
	if err != nil {
		return "", false
	}

	tok, err := b.oauth.Exchange(ctx, strings.TrimSpace(string(code)))
	if err != nil {
		b.logger.Warn("failed to exchange pending authorization code", logging.Err(err))
		os.Remove(pendingFile)
		return "", false
	}

	os.Remove(pendingFile)
	if err := b.persistToken(tok); err != nil {
		b.logger.Warn("failed to persist token", logging.Err(err))
	}
	b.logger.Info("adopted token from pending authorization")
	return tok.AccessToken, true
}

// silentToken reacquires a token from the cached refresh token.
func (b *Broker) silentToken(ctx context.Context) (string, bool) {
	slurp, err := os.ReadFile(filepath.Join(b.cacheDir, tokenFileName))
	if err != nil {
		return "", false
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		b.logger.Warn("invalid cached token format")
		return "", false
	}

	ts := b.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	tok, err := ts.Token()
	if err != nil {
		b.logger.Warn("silent token reacquisition failed", logging.Err(err))
		return "", false
	}

	if err := b.persistToken(tok); err != nil {
		b.logger.Warn("failed to persist refreshed token", logging.Err(err))
	}
	return tok.AccessToken, true
}

// interactiveToken runs the configured interactive flow.
func (b *Broker) interactiveToken(ctx context.Context) (string, bool) {
	if b.authorizer == nil {
		b.logger.Debug("no interactive authorizer configured")
		return "", false
	}

	code, err := b.authorizer.Authorize(ctx, b.AuthURL())
	if err != nil {
		b.logger.Warn("interactive authorization failed", logging.Err(err))
		return "", false
	}

	tok, err := b.oauth.Exchange(ctx, code)
	if err != nil {
		b.logger.Warn("failed to exchange authorization code", logging.Err(err))
		return "", false
	}

	if err := b.persistToken(tok); err != nil {
		b.logger.Warn("failed to persist token", logging.Err(err))
	}
	return tok.AccessToken, true
}

// AuthURL returns the URL a user visits to authorize the application,
// or "" when the application identity is not configured. Callers use
// the empty URL to distinguish "not configured" from "not authorized".
func (b *Broker) AuthURL() string {
	if !b.config.Complete() {
		return ""
	}
	b.ensureOAuthConfig()
	return b.oauth.AuthCodeURL("state", oauth2.AccessTypeOffline)
}

// SavePendingAuthCode stores an authorization code for the next token
// acquisition to adopt. Used by the authorize command after the user
// completes the redirect flow out of band.
func (b *Broker) SavePendingAuthCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("authorization code is required")
	}
	if err := os.MkdirAll(b.cacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	pendingFile := filepath.Join(b.cacheDir, pendingFileName)
	if err := os.WriteFile(pendingFile, []byte(strings.TrimSpace(code)), 0600); err != nil {
		return fmt.Errorf("failed to write pending authorization code: %w", err)
	}
	return nil
}

// HasToken reports whether a cached token exists on disk.
func (b *Broker) HasToken() bool {
	_, err := os.ReadFile(filepath.Join(b.cacheDir, tokenFileName))
	return err == nil
}

func (b *Broker) persistToken(tok *oauth2.Token) error {
	if err := os.MkdirAll(b.cacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data := tok.AccessToken + " " + tok.RefreshToken
	if err := os.WriteFile(filepath.Join(b.cacheDir, tokenFileName), []byte(data), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		panic("No Windows TEMP or TMP environment variables found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
