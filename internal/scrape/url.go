package scrape

import (
	"net/netip"
	"net/url"
	"strings"

	"docharvest-backend/internal/shared/apperr"
)

// Failure codes reported by URL validation and Scrape.
const (
	CodeInvalidURL             = "invalid_url"
	CodeUnsupportedScheme      = "unsupported_scheme"
	CodeMissingHost            = "missing_host"
	CodePrivateHost            = "private_host"
	CodeNotAccessible          = "not_accessible"
	CodeTimeout                = "timeout"
	CodePageNotFound           = "page_not_found"
	CodeBlocked                = "blocked"
	CodeHTTPStatus             = "http_status"
	CodeTooManyRedirects       = "too_many_redirects"
	CodeUnsupportedContentType = "unsupported_content_type"
	CodeResponseTooLarge       = "response_too_large"
	CodeParseFailed            = "parse_failed"
	CodeNoContent              = "no_content"
	CodeFetchFailed            = "fetch_failed"
)

// NormalizeURL trims raw and assumes https when no scheme is present.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

// ValidateFormat normalizes raw and checks scheme and host policy without
// touching the network.
func ValidateFormat(raw string) (*url.URL, error) {
	normalized := NormalizeURL(raw)
	if normalized == "" {
		return nil, apperr.Validation(CodeInvalidURL, "URL is required")
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, apperr.Validationf(CodeInvalidURL, "invalid URL format: %s", normalized)
	}
	if err := checkTarget(u); err != nil {
		return nil, err
	}
	return u, nil
}

func checkTarget(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return apperr.Validationf(CodeUnsupportedScheme, "unsupported URL scheme %q: only http and https are allowed", u.Scheme)
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return apperr.Validation(CodeMissingHost, "URL must include a host")
	}
	if isPrivateHost(host) {
		return apperr.Validationf(CodePrivateHost, "access to private or local address %q is not allowed", host)
	}
	return nil
}

func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast()
}
