package openai

import "unicode/utf8"

// truncateText cuts text to at most maxChars bytes without splitting a rune.
// A limit of zero disables truncation. The cut is deterministic: the same
// input always yields the same prefix.
func truncateText(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || len(text) <= maxChars {
		return text, false
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}
