package googleauth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const tokenFileName = "google.token"

// Config holds the OAuth2 client settings for the Google Drive backend.
type Config struct {
	ClientID     string
	ClientSecret string
}

// ConfigFromEnv reads the Google client settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		ClientID:     os.Getenv("MAILTABLE_GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("MAILTABLE_GOOGLE_CLIENT_SECRET"),
	}
}

// Complete reports whether the configuration can drive an OAuth flow.
func (c Config) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c Config) oauthConfig() *oauth2.Config {
	const OOB = "urn:ietf:wg:oauth:2.0:oob"
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  OOB,
		Scopes: []string{
			// drive.file covers only files this application created,
			// which is all the hosting backend touches.
			"https://www.googleapis.com/auth/drive.file",
		},
	}
}

// HasToken checks if a cached OAuth token exists
func HasToken() bool {
	_, err := os.ReadFile(tokenFilePath())
	return err == nil
}

// GetAuthURL returns the OAuth URL for user authorization
func (c Config) GetAuthURL() string {
	return c.oauthConfig().AuthCodeURL("state")
}

// SaveToken exchanges an authorization code for tokens and saves them
func (c Config) SaveToken(ctx context.Context, authCode string) error {
	t, err := c.oauthConfig().Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	cacheDir := filepath.Dir(tokenFilePath())
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tokenData := t.AccessToken + " " + t.RefreshToken
	if err := os.WriteFile(tokenFilePath(), []byte(tokenData), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// GetTokenSource returns an OAuth2 token source for the stored token.
// Returns an error if no valid token exists.
func (c Config) GetTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	slurp, err := os.ReadFile(tokenFilePath())
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found")
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format")
	}

	ts := c.oauthConfig().TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("cached token is invalid: %w", err)
	}

	return ts, nil
}

// GetHTTPClient returns an HTTP client configured with OAuth2 authentication.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors
// against the Drive upload endpoints.
func (c Config) GetHTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := c.GetTokenSource(ctx)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, ts)

	transport := client.Transport.(*oauth2.Transport)
	transport.Base = &http.Transport{
		ForceAttemptHTTP2: false,
	}

	return client, nil
}

func tokenFilePath() string {
	return filepath.Join(userCacheDir(), "mailtable", tokenFileName)
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
