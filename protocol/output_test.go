package protocol

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractResultText_ResultField(t *testing.T) {
	got := ExtractResultText([]byte(`{"result":"Hello from the agent","is_error":false}`))
	if got != "Hello from the agent" {
		t.Errorf("unexpected result text: %q", got)
	}
}

func TestExtractResultText_OutputField(t *testing.T) {
	got := ExtractResultText([]byte(`{"output":"final answer"}`))
	if got != "final answer" {
		t.Errorf("unexpected result text: %q", got)
	}
}

func TestExtractResultText_ContentArray(t *testing.T) {
	payload := `{"content":[{"type":"text","text":"line one"},{"type":"tool_use","id":"t1"},{"type":"text","text":"line two"}]}`
	got := ExtractResultText([]byte(payload))
	if got != "line one\nline two" {
		t.Errorf("unexpected joined text: %q", got)
	}
}

func TestExtractResultText_RawFallback(t *testing.T) {
	got := ExtractResultText([]byte("  plain text, not JSON  \n"))
	if got != "plain text, not JSON" {
		t.Errorf("unexpected raw fallback: %q", got)
	}
}

func TestExtractResultText_ResultFieldWinsOverContent(t *testing.T) {
	payload := `{"result":"the result","content":[{"type":"text","text":"ignored"}]}`
	if got := ExtractResultText([]byte(payload)); got != "the result" {
		t.Errorf("expected result field to win, got %q", got)
	}
}

func TestExtractErrorMessage_StructuredJSON(t *testing.T) {
	got := ExtractErrorMessage([]byte(`{"is_error":true,"result":"API overloaded"}`), 1)
	if got != "API overloaded" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestExtractErrorMessage_NestedErrorField(t *testing.T) {
	got := ExtractErrorMessage([]byte(`{"error":{"message":"invalid request"}}`), 1)
	if got != "invalid request" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestExtractErrorMessage_RegexTierOnMalformedJSON(t *testing.T) {
	// Truncated payload the structured tier rejects wholesale.
	payload := `garbage prefix {"type":"result","result":"session limit reached","usage":{`
	got := ExtractErrorMessage([]byte(payload), 1)
	if got != "session limit reached" {
		t.Errorf("expected regex tier extraction, got %q", got)
	}
}

func TestExtractErrorMessage_TextFieldRegex(t *testing.T) {
	payload := `{"content":[{"type":"text","text":"something broke"}` // truncated
	got := ExtractErrorMessage([]byte(payload), 1)
	if got != "something broke" {
		t.Errorf("expected text field extraction, got %q", got)
	}
}

func TestExtractErrorMessage_RawTruncation(t *testing.T) {
	long := strings.Repeat("e", 1000)
	got := ExtractErrorMessage([]byte(long), 1)
	if len(got) > maxErrorMessageLen+len("…") {
		t.Errorf("message not truncated: len=%d", len(got))
	}
	if !strings.HasPrefix(got, "eee") {
		t.Errorf("truncation lost the prefix: %q", got[:10])
	}
}

func TestExtractErrorMessage_TruncationKeepsValidUTF8(t *testing.T) {
	// 3-byte runes so the byte limit lands inside a rune.
	long := strings.Repeat("世", 200)
	got := ExtractErrorMessage([]byte(long), 1)
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got[len(got)-8:])
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated message missing ellipsis: %q", got)
	}
}

func TestExtractErrorMessage_ExitCodeFallback(t *testing.T) {
	got := ExtractErrorMessage([]byte("   \n"), 137)
	if got != "agent process exited with code 137" {
		t.Errorf("unexpected fallback: %q", got)
	}
}

func TestIsRecoverableSessionError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Session id not found", true},
		{"Session ID does not exist", true},
		{"the session id is invalid", true},
		{"session id has expired", true},
		{"cannot resume session id abc", true},
		{"network timeout", false},
		{"", false},
		{"invalid request", false},
		{"session limit reached", false},
	}

	for _, tt := range tests {
		if got := IsRecoverableSessionError(tt.msg); got != tt.want {
			t.Errorf("IsRecoverableSessionError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
