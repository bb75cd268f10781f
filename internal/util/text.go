package util

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeWhitespace turns a typed search query or caption into one line:
// runs of spaces, tabs and newlines become a single space, ends trimmed.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllLiteralString(s, " "))
}

// ContainsAnyCaseInsensitive is the user-search match: it reports whether
// any needle occurs in text, ignoring case. No needles matches nothing.
func ContainsAnyCaseInsensitive(text string, needles []string) bool {
	hay := strings.ToLower(text)
	for i := range needles {
		if strings.Contains(hay, strings.ToLower(needles[i])) {
			return true
		}
	}
	return false
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
