// Package canonical reduces product URLs to a stable identity.
//
// Two URLs that differ only in query parameters or fragment (tracking tags,
// marketing refs) must resolve to the same monitored product, so the
// canonical form keeps scheme+host+path only and identity is the SHA-256 of
// that string.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for inputs that cannot identify a product page.
// It fails the submission before any extraction is attempted.
var ErrInvalidURL = fmt.Errorf("invalid product url")

// Canonicalize strips query string and fragment, keeping scheme+host+path.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	canon := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	return canon.String(), nil
}

// Hash returns the hex SHA-256 digest of a canonical URL.
func Hash(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])
}

// Host extracts the hostname (without port) of a canonical URL.
func Host(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// HostCandidates lists lookup candidates for a hostname, most specific
// first. For "m.americanas.com.br" it yields:
//
//	m.americanas.com.br
//	americanas.com.br
//	com.br
//
// The selector registry stops at the first registered, active domain.
func HostCandidates(host string) []string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return nil
	}
	parts := strings.Split(host, ".")
	candidates := make([]string, 0, len(parts)-1)
	for i := 0; i < len(parts)-1; i++ {
		candidates = append(candidates, strings.Join(parts[i:], "."))
	}
	if len(candidates) == 0 {
		candidates = append(candidates, host)
	}
	return candidates
}
