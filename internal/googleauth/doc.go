// Package googleauth handles OAuth2 authentication for the Google Drive
// hosting backend. Tokens are cached on disk under the user cache
// directory and refreshed automatically through the oauth2 token source.
package googleauth
