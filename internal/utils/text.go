package utils

import (
	"strings"
	"unicode/utf8"
)

const truncationMarker = " …"

// TruncateWords cuts s to at most limit runes, backing off to the last space so
// words are never split. A marker is appended when anything was dropped.
func TruncateWords(s string, limit int) string {
	s = strings.TrimSpace(s)
	if s == "" || limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	truncated := string([]rune(s)[:limit])
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}

	return truncated + truncationMarker
}

// CleanText collapses every whitespace run into a single space and drops invalid UTF-8.
func CleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Join(strings.Fields(s), " ")
}

// FirstRunes returns the first n runes of s.
func FirstRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
