package logutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const redacted = "[REDACTED]"

// IsSensitiveLogField returns true when a key likely contains sensitive data.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch {
	case normalized == "authorization":
		return true
	case strings.Contains(normalized, "token"):
		return true
	case strings.Contains(normalized, "secret"):
		return true
	case strings.Contains(normalized, "password"):
		return true
	case strings.Contains(normalized, "apikey"):
		return true
	case strings.Contains(normalized, "cookie"):
		return true
	case strings.Contains(normalized, "session"):
		return true
	case strings.Contains(normalized, "auth"):
		return true
	default:
		return false
	}
}

var quotedArg = regexp.MustCompile(`"[^"]*"`)

// RedactStepText hides the quoted arguments of a step whose wording names a
// sensitive field, e.g. `I enter password "hunter2"`.
func RedactStepText(text string) string {
	sensitive := false
	for _, word := range strings.Fields(text) {
		if IsSensitiveLogField(strings.Trim(word, `"'.,:`)) {
			sensitive = true
			break
		}
	}
	if !sensitive {
		return text
	}
	return quotedArg.ReplaceAllString(text, `"`+redacted+`"`)
}

// TruncateForLog returns a single-line truncated preview for unstructured
// values. maxChars counts runes, so the preview stays valid UTF-8.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	if maxChars <= 0 || utf8.RuneCountInString(normalized) <= maxChars {
		return normalized
	}
	return string([]rune(normalized)[:maxChars]) + "... [truncated]"
}
