// Package ndjson provides newline-delimited JSON framing for the agent's
// stdin. The read side has no counterpart here: incoming bytes go through
// protocol.Decoder, which owns the growable line buffer.
package ndjson

import (
	"io"
	"sync"
)

// Writer writes newline-terminated lines to an underlying stream.
type Writer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriter wraps w in an NDJSON line writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRaw writes one pre-encoded line, appending the newline delimiter.
func (w *Writer) WriteRaw(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(line); err != nil {
		return err
	}
	_, err := w.w.Write([]byte{'\n'})
	return err
}
