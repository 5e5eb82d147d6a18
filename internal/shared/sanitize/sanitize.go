// Package sanitize normalizes untrusted extracted text before it is stored.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// TruncationMarker is appended to text cut by Truncate.
	TruncationMarker = "... [content truncated]"
	// UntitledDocument is returned by DeriveTitle when text has no usable line.
	UntitledDocument = "Untitled Document"
	// DefaultTitleLength is the DeriveTitle cap used across the pipeline.
	DefaultTitleLength = 100

	defaultFileStem = "document"
	ellipsis        = "..."
)

var (
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	newlineRuns   = regexp.MustCompile(`\n{3,}`)
	horizontalRun = regexp.MustCompile(`[ \t]{2,}`)
)

// Text strips control characters (keeping newlines and tabs), collapses
// blank-line runs and horizontal whitespace runs, and trims the result.
func Text(text string) string {
	if text == "" {
		return ""
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	out := controlChars.ReplaceAllString(text, "")
	out = newlineRuns.ReplaceAllString(out, "\n\n")
	out = horizontalRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Truncate cuts text to maxLen characters and appends TruncationMarker.
// Text within the limit is returned unchanged.
func Truncate(text string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	return prefixRunes(text, maxLen) + TruncationMarker
}

// DeriveTitle returns the first non-blank line of text, shortened with an
// ellipsis past maxLen characters.
func DeriveTitle(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleLength
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxLen {
			return prefixRunes(line, maxLen) + ellipsis
		}
		return line
	}
	return UntitledDocument
}

// FileStem turns an uploaded file name into a storage-safe stem: the
// extension is dropped and every non-alphanumeric rune becomes '_'.
func FileStem(name string, maxLen int) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	var b strings.Builder
	for _, r := range name {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	stem := b.String()
	if strings.Trim(stem, "_") == "" {
		return defaultFileStem
	}
	if maxLen > 0 && len(stem) > maxLen {
		stem = stem[:maxLen]
	}
	return stem
}

// Length is the character count used by every size rule.
func Length(text string) int {
	return utf8.RuneCountInString(text)
}

func prefixRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}
