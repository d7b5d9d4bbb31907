package services

import (
	"strings"
	"unicode/utf8"
)

// ValidatePrompt checks the description as the user sent it. Length is
// counted in characters of the raw text, surrounding whitespace included;
// only the emptiness check ignores whitespace. The prompt is returned
// unchanged. The reason is empty when the prompt is acceptable.
func ValidatePrompt(raw string, maxChars int) (string, InvalidReason) {
	if strings.TrimSpace(raw) == "" {
		return raw, ReasonEmpty
	}
	if maxChars > 0 && utf8.RuneCountInString(raw) > maxChars {
		return raw, ReasonTooLong
	}
	return raw, ""
}
