package state

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSummarizeInputPrefersIdentifyingField(t *testing.T) {
	got := summarizeInput("Edit", map[string]interface{}{
		"file_path": "/repo/main.go",
		"old":       "a",
		"new":       "b",
	})
	if got != "/repo/main.go" {
		t.Errorf("unexpected summary: %q", got)
	}
}

func TestClipKeepsValidUTF8(t *testing.T) {
	// 3-byte runes so the byte limit lands inside a rune.
	long := strings.Repeat("界", 100)
	got := clip(long, maxResultSummaryLen)
	if !utf8.ValidString(got) {
		t.Errorf("clip split a rune: %q", got[len(got)-8:])
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("clipped text missing ellipsis: %q", got)
	}
}
