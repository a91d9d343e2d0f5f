package ndjson

import (
	"bytes"
	"testing"
)

func TestWriterAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteRaw([]byte(`{"type":"user"}`)); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	if err := w.WriteRaw([]byte(`{"type":"control_response"}`)); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}

	want := "{\"type\":\"user\"}\n{\"type\":\"control_response\"}\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}
