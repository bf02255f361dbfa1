// Package privacy provides utility functions for scrubbing sensitive data
// from log output and user-facing messages, such as IP anonymization and
// URL redaction.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	// URL pattern for finding URLs in free-form text.
	urlPattern = regexp.MustCompile(`\b(?:https?|wss?)://\S+`)

	// Product token at the start of a User-Agent string.
	userAgentProduct = regexp.MustCompile(`^[A-Za-z0-9._-]+(?:/[0-9][0-9a-zA-Z.]*)?`)
)

// ScrubMessage replaces every URL in the message with an anonymized form so
// the message can be logged or shown in a notification without leaking
// hostnames, credentials or paths.
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL reduces a URL to its scheme plus a stable hash of the rest.
// Identical URLs map to identical output so log lines remain correlatable.
func AnonymizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return "url-" + hashPrefix(rawURL)
	}
	return fmt.Sprintf("%s://%s-host", parsed.Scheme, hashPrefix(parsed.Host+parsed.Path))
}

// AnonymizeIP maps an IP address to a stable opaque token. Loopback and
// private-range addresses keep a recognizable class prefix since they
// identify the deployment, not a user.
func AnonymizeIP(ipStr string) string {
	if ipStr == "" {
		return "unknown"
	}

	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return "invalid-" + hashPrefix(ipStr)
	}

	switch {
	case ip.IsLoopback():
		return "loopback"
	case ip.IsPrivate():
		return "private-" + hashPrefix(ip.String())
	default:
		return "ip-" + hashPrefix(ip.String())
	}
}

// RedactUserAgent keeps only the leading product token of a User-Agent
// string, dropping OS details, extensions and anything else that could
// fingerprint the client.
func RedactUserAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ""
	}
	if product := userAgentProduct.FindString(ua); product != "" {
		return product
	}
	return "ua-" + hashPrefix(ua)
}

// hashPrefix returns the first 8 hex characters of the SHA-256 of s.
func hashPrefix(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
