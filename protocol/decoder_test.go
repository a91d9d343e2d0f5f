package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestDecoder_SplitsCompleteLines(t *testing.T) {
	d := NewDecoder()

	msgs := d.Feed([]byte(`{"type":"system","subtype":"init","session_id":"s1"}` + "\n" +
		`{"type":"result","subtype":"success","session_id":"s1","result":"ok"}` + "\n"))

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if _, ok := msgs[0].(SystemMessage); !ok {
		t.Errorf("expected SystemMessage, got %T", msgs[0])
	}
	if _, ok := msgs[1].(ResultMessage); !ok {
		t.Errorf("expected ResultMessage, got %T", msgs[1])
	}
}

func TestDecoder_BuffersPartialLines(t *testing.T) {
	d := NewDecoder()

	if msgs := d.Feed([]byte(`{"type":"sys`)); msgs != nil {
		t.Fatalf("expected no messages for partial line, got %d", len(msgs))
	}
	msgs := d.Feed([]byte(`tem","subtype":"init","session_id":"s1"}` + "\n"))
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message after completing line, got %d", len(msgs))
	}
}

func TestDecoder_DropsMalformedLinesSilently(t *testing.T) {
	d := NewDecoder()

	msgs := d.Feed([]byte("this is diagnostic chatter, not JSON\n" +
		`{"type":"result","subtype":"success","session_id":"s1","result":"ok"}` + "\n" +
		"{truncated\n"))

	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
}

func TestDecoder_OutputNeverExceedsNewlineCount(t *testing.T) {
	inputs := [][]byte{
		[]byte("no newline at all"),
		[]byte("\n\n\n"),
		[]byte(`{"type":"system","subtype":"init"}` + "\n" + "junk\n"),
		bytes.Repeat([]byte(`{"type":"user"}`+"\n"), 50),
		[]byte(strings.Repeat("x", 10000)),
		[]byte{0, 1, 2, '\n', 0xff, '\n'},
	}

	for _, in := range inputs {
		d := NewDecoder()
		msgs := d.Feed(in)
		newlines := bytes.Count(in, []byte{'\n'})
		if len(msgs) > newlines {
			t.Errorf("got %d messages from input with %d newlines", len(msgs), newlines)
		}
	}
}

func TestDecoder_CapturesSessionIDOpportunistically(t *testing.T) {
	d := NewDecoder()

	// The id arrives on an early non-terminal message and must be kept
	// even though the turn later errors.
	d.Feed([]byte(`{"type":"assistant","session_id":"sess-early","message":{"role":"assistant","content":"hi"}}` + "\n"))
	if d.SessionID() != "sess-early" {
		t.Fatalf("expected session id captured from assistant message, got %q", d.SessionID())
	}

	d.Feed([]byte(`{"type":"result","subtype":"error","session_id":"","is_error":true,"result":"boom"}` + "\n"))
	if d.SessionID() != "sess-early" {
		t.Errorf("empty session_id on later message should not clobber captured id")
	}
}

func TestDecoder_UnknownTypeSurfacesAsUnknownMessage(t *testing.T) {
	d := NewDecoder()

	msgs := d.Feed([]byte(`{"type":"telemetry_snapshot","data":{"x":1}}` + "\n"))
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	unknown, ok := msgs[0].(UnknownMessage)
	if !ok {
		t.Fatalf("expected UnknownMessage, got %T", msgs[0])
	}
	if unknown.Type != "telemetry_snapshot" {
		t.Errorf("expected raw type preserved, got %q", unknown.Type)
	}
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte(`{"type":"system","subtype":"init","session_id":"s1"}` + "\n" + `{"partial`))

	d.Reset()

	if d.SessionID() != "" {
		t.Errorf("expected session id cleared after Reset, got %q", d.SessionID())
	}
	msgs := d.Feed([]byte(`{"type":"user","session_id":"s2","message":{"role":"user","content":"x"}}` + "\n"))
	if len(msgs) != 1 {
		t.Fatalf("expected buffered partial discarded by Reset, got %d messages", len(msgs))
	}
}
