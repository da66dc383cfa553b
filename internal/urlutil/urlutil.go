// Package urlutil canonicalizes article URLs so that the same story fetched
// through different aggregators or tracking wrappers deduplicates to a single
// key.
package urlutil

import (
	"html"
	"net/url"
	"strings"
)

// Result holds the outcome of canonicalizing a raw URL.
type Result struct {
	// Original is the input URL, untouched.
	Original string `json:"original"`
	// Canonical is the cleaned URL, empty when the input is unusable.
	Canonical string `json:"canonical"`
	// Valid reports whether Canonical is a well-formed http(s) URL.
	Valid bool `json:"valid"`
}

// trackingParams is the deny-list of query parameters removed from every
// host: aggregator click-through ids, analytics ids, and ad-click ids.
var trackingParams = map[string]bool{
	"ct":      true,
	"cd":      true,
	"usg":     true,
	"oc":      true,
	"ucbcb":   true,
	"fbclid":  true,
	"gclid":   true,
	"gclsrc":  true,
	"msclkid": true,
	"dclid":   true,
}

// trackingPrefix matches campaign parameters (utm_source, utm_medium, ...).
const trackingPrefix = "utm_"

// redirectHostSuffix identifies aggregator redirect URLs that embed the real
// destination in a query parameter.
const (
	redirectHostSuffix = "google.com"
	redirectPath       = "/url"
)

// redirectParams are checked in order for the embedded destination.
var redirectParams = []string{"url", "q"}

// contentInPathHosts encode the full article reference in their own path and
// ignore query strings entirely.
var contentInPathHosts = map[string]bool{
	"news.google.com": true,
}

// maxRedirectDepth bounds recursion when unwrapping redirect URLs.
const maxRedirectDepth = 1

// DecodeEntities decodes named and numeric HTML entities. Both source
// parsers use this single implementation so titles and URLs decode
// identically.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

// Canonicalize cleans a raw article URL: decodes HTML entities, unwraps
// aggregator redirects, and strips tracking parameters. It is a pure
// function of its input; canonicalizing a canonical URL returns it
// unchanged.
func Canonicalize(rawURL string) Result {
	return canonicalize(rawURL, maxRedirectDepth)
}

func canonicalize(rawURL string, depth int) Result {
	result := Result{Original: rawURL}

	decoded := DecodeEntities(strings.TrimSpace(rawURL))
	if !strings.HasPrefix(decoded, "http") {
		return result
	}

	parsed, parseErr := url.Parse(decoded)
	if parseErr != nil || parsed.Host == "" || !isHTTPScheme(parsed.Scheme) {
		return result
	}

	if depth > 0 && isRedirectURL(parsed) {
		if target, ok := extractRedirectTarget(parsed); ok {
			if unwrapped := canonicalize(target, depth-1); unwrapped.Valid {
				unwrapped.Original = rawURL
				return unwrapped
			}
		}
		// Best-effort: an undecodable redirect keeps the wrapper URL.
	}

	if contentInPathHosts[hostname(parsed)] {
		parsed.RawQuery = ""
		parsed.Fragment = ""
	}

	parsed.RawQuery = stripTracking(parsed.RawQuery)

	canonical := parsed.String()
	if parsed.RawQuery == "" {
		canonical = parsed.Scheme + "://" + parsed.Host + parsed.EscapedPath()
	}

	result.Canonical = canonical
	result.Valid = true
	return result
}

// isHTTPScheme reports whether scheme is http or https.
func isHTTPScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}

// hostname returns the lowercased host without any port.
func hostname(u *url.URL) string {
	return strings.ToLower(u.Hostname())
}

// isRedirectURL reports whether u is an aggregator redirect wrapper.
func isRedirectURL(u *url.URL) bool {
	host := hostname(u)
	if host != redirectHostSuffix && !strings.HasSuffix(host, "."+redirectHostSuffix) {
		return false
	}
	return u.Path == redirectPath
}

// extractRedirectTarget pulls the embedded destination URL out of a
// redirect wrapper's query string.
func extractRedirectTarget(u *url.URL) (string, bool) {
	query := u.Query()
	for _, param := range redirectParams {
		if target := query.Get(param); strings.HasPrefix(target, "http") {
			return target, true
		}
	}
	return "", false
}

// stripTracking filters tracking parameters out of a raw query string.
// Surviving parameters keep their original order and encoding.
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		name := pair
		if idx := strings.Index(pair, "="); idx >= 0 {
			name = pair[:idx]
		}
		name = strings.ToLower(name)

		if trackingParams[name] || strings.HasPrefix(name, trackingPrefix) {
			continue
		}
		if pair != "" {
			kept = append(kept, pair)
		}
	}

	return strings.Join(kept, "&")
}
