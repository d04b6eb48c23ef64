// Package textutil provides text normalization, the content fingerprint,
// keyword extraction, and reading statistics for extracted documents.
package textutil

import (
	"crypto/md5" //nolint:gosec // dedup fingerprint, not a security boundary
	"encoding/hex"
	"regexp"
	"strings"
)

// Average adult reading speed used for the reading-time estimate.
const wordsPerMinute = 200

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Characters outside word characters, whitespace, and basic punctuation
	// are dropped during cleaning.
	specialCharsRe = regexp.MustCompile(`[^\w\s.,!?;:()\-"]`)
)

// CleanText collapses whitespace and strips characters outside the basic
// punctuation set, then trims the result.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialCharsRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

// ContentHash returns the hex MD5 digest of the normalized content:
// cleaned and lowercased, so trivial edits do not defeat deduplication.
// Empty content hashes to the empty string.
func ContentHash(content string) string {
	if content == "" {
		return ""
	}

	normalized := strings.ToLower(CleanText(content))
	sum := md5.Sum([]byte(normalized)) //nolint:gosec // dedup fingerprint

	return hex.EncodeToString(sum[:])
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime estimates reading time in whole minutes, never less than
// one for non-empty text.
func ReadingTime(text string) int {
	words := WordCount(text)
	if words == 0 {
		return 0
	}

	minutes := words / wordsPerMinute
	if minutes < 1 {
		return 1
	}

	return minutes
}

// TruncateText shortens text to at most maxLength characters, preferring
// a word boundary, and appends an ellipsis when truncation occurred.
func TruncateText(text string, maxLength int) string {
	if text == "" || len(text) <= maxLength {
		return text
	}

	truncated := text[:maxLength]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}
