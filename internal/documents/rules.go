package documents

import (
	"strings"

	"docharvest-backend/internal/shared/sanitize"
)

const (
	MaxTitleLength   = 500
	MaxContentLength = 1_000_000
)

// maxStoredContent admits content that was truncated to MaxContentLength
// and carries the truncation marker.
var maxStoredContent = MaxContentLength + sanitize.Length(sanitize.TruncationMarker)

// ValidateRules returns every business rule doc violates, in a stable order.
func ValidateRules(doc NewDocument) []string {
	var violations []string

	if doc.ClientID <= 0 {
		violations = append(violations, "client id must be a positive integer")
	}

	title := strings.TrimSpace(doc.Title)
	switch {
	case title == "":
		violations = append(violations, "title is required")
	case sanitize.Length(doc.Title) > MaxTitleLength:
		violations = append(violations, "title must be at most 500 characters")
	}

	switch {
	case strings.TrimSpace(doc.Content) == "":
		violations = append(violations, "content is required")
	case sanitize.Length(doc.Content) > maxStoredContent:
		violations = append(violations, "content must be at most 1000000 characters")
	}

	switch src := doc.Source.(type) {
	case nil:
		violations = append(violations, "source is required")
	case BinarySource:
		if strings.TrimSpace(src.Path) == "" {
			violations = append(violations, "binary_document requires a file path")
		}
	case RemoteSource:
		if strings.TrimSpace(src.URL) == "" {
			violations = append(violations, "remote_page requires a source url")
		}
	default:
		violations = append(violations, "unsupported source type")
	}

	return violations
}
