package logutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestIsSensitiveLogField(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"password", "Session_ID", "auth-token", "X-Api-Key", "cookie", "client_secret"} {
		if !IsSensitiveLogField(key) {
			t.Fatalf("%q should be sensitive", key)
		}
	}
	for _, key := range []string{"username", "query", "title", ""} {
		if IsSensitiveLogField(key) {
			t.Fatalf("%q should not be sensitive", key)
		}
	}
}

func testRedactStepText_HidesPasswordArguments(t *rapid.T) {
	secret := rapid.StringMatching(`[a-zA-Z0-9!@#]{1,24}`).Draw(t, "secret")
	text := `I enter password "` + secret + `"`

	got := RedactStepText(text)
	if got != `I enter password "[REDACTED]"` {
		t.Fatalf("unexpected redaction: %q", got)
	}
}

func TestRedactStepText_HidesPasswordArguments(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRedactStepText_HidesPasswordArguments)
}

// ordinaryArg draws argument text in which no word names a sensitive field.
var ordinaryArg = rapid.StringMatching(`[a-zA-Z0-9 ]{0,24}`).Filter(func(s string) bool {
	for _, word := range strings.Fields(s) {
		if IsSensitiveLogField(word) {
			return false
		}
	}
	return true
})

func testRedactStepText_LeavesOrdinaryStepsAlone(t *rapid.T) {
	arg := ordinaryArg.Draw(t, "arg")
	text := rapid.SampledFrom([]string{
		`I enter username "%s"`,
		`I enter search query "%s"`,
		`I should see the dashboard for "%s"`,
	}).Draw(t, "template")
	text = strings.Replace(text, "%s", arg, 1)

	if got := RedactStepText(text); got != text {
		t.Fatalf("ordinary step should be unchanged: got=%q want=%q", got, text)
	}
}

func TestRedactStepText_LeavesOrdinaryStepsAlone(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRedactStepText_LeavesOrdinaryStepsAlone)
}

func TestTruncateForLog(t *testing.T) {
	t.Parallel()
	if got := TruncateForLog("  line one\nline two  ", 0); got != `line one\nline two` {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := TruncateForLog("abcdefghij", 4); got != "abcd... [truncated]" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if TruncateForLog("   ", 10) != "" {
		t.Fatal("blank input should be empty")
	}
	if got := TruncateForLog("café au lait", 4); got != "café... [truncated]" {
		t.Fatalf("unexpected multi-byte truncation: %q", got)
	}
}

func testTruncateForLog_StaysValidUTF8(t *rapid.T) {
	value := rapid.String().Draw(t, "value")
	maxChars := rapid.IntRange(1, 40).Draw(t, "maxChars")

	got := TruncateForLog(value, maxChars)
	if !utf8.ValidString(value) {
		return
	}
	if !utf8.ValidString(got) {
		t.Fatalf("preview of %q cut mid-rune: %q", value, got)
	}
	preview := strings.TrimSuffix(got, "... [truncated]")
	if n := utf8.RuneCountInString(preview); n > maxChars {
		t.Fatalf("preview has %d runes, limit %d", n, maxChars)
	}
}

func TestTruncateForLog_StaysValidUTF8(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTruncateForLog_StaysValidUTF8)
}
