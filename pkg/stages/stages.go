// Package stages hosts the six pipeline stage executors and the small text
// helpers their deterministic fallbacks share.
package stages

import (
	"strings"
	"unicode"
)

// Slug lowercases a topic and collapses non-alphanumeric runs into single
// hyphens, for synthetic URLs and local post ids.
func Slug(s string) string {
	var b strings.Builder

	lastHyphen := true

	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)

			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')

			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// Truncate cuts a string to at most n runes, appending an ellipsis when it
// was shortened.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n]) + "…"
}

// Hashtags derives up to limit hashtag strings from the words of a topic.
func Hashtags(topic string, limit int) []string {
	var tags []string

	for _, word := range strings.Fields(topic) {
		cleaned := Slug(word)
		if cleaned == "" {
			continue
		}

		tags = append(tags, "#"+strings.ReplaceAll(cleaned, "-", ""))

		if len(tags) == limit {
			break
		}
	}

	return tags
}
