// Package cliclient is the thin HTTP client crawlee-cli uses to talk to
// the public API surface (pkg/api/routes), plus the OS-keyring-backed
// token cache.
package cliclient

import (
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "crawlee-cloud"

// normalizeKey converts a baseURL into a stable keyring key, trimming
// surrounding space and trailing slashes and lowercasing the whole URL so
// equivalent URLs don't create duplicate entries.
func normalizeKey(baseURL string) string {
	s := strings.TrimSpace(baseURL)
	s = strings.TrimRight(s, "/")
	return strings.ToLower(s)
}

// SaveToken stores token in the OS keyring under baseURL's key.
func SaveToken(baseURL, token string) error {
	return keyring.Set(keyringService, normalizeKey(baseURL), token)
}

// LoadToken retrieves the token cached for baseURL, if any.
func LoadToken(baseURL string) (string, error) {
	return keyring.Get(keyringService, normalizeKey(baseURL))
}

// DeleteToken clears the cached token for baseURL.
func DeleteToken(baseURL string) error {
	return keyring.Delete(keyringService, normalizeKey(baseURL))
}
