package protocol

import (
	"bytes"
	"encoding/json"
	"log/slog"
)

// Decoder turns raw bytes from the agent's stdout into typed messages.
//
// Bytes accumulate in one growable buffer and are split on newlines; each
// complete line is parsed as a single JSON message. A line that fails to
// parse is dropped: the transport is known to emit non-JSON diagnostic
// chatter, and no single line may abort the stream. The buffer is never
// reset except through Reset on session recreation.
type Decoder struct {
	buf       []byte
	sessionID string
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends p to the internal buffer and returns every complete
// message it contains. Partial trailing lines stay buffered for the next
// call. The returned slice holds at most as many messages as p holds
// newlines.
func (d *Decoder) Feed(p []byte) []Message {
	d.buf = append(d.buf, p...)

	var msgs []Message
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			return msgs
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]

		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		d.captureSessionID(line)

		msg, err := ParseMessage(line)
		if err != nil {
			slog.Debug("dropping malformed protocol line", "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
}

// SessionID returns the external session id seen so far, or "".
//
// The id is captured opportunistically from any message that carries one,
// not only terminal ones. It may arrive early and must survive for
// resumption even if the turn later errors.
func (d *Decoder) SessionID() string {
	return d.sessionID
}

// Reset clears the buffer and captured session id for session recreation.
func (d *Decoder) Reset() {
	d.buf = nil
	d.sessionID = ""
}

func (d *Decoder) captureSessionID(line []byte) {
	var carrier struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(line, &carrier); err != nil {
		return
	}
	if carrier.SessionID != "" {
		d.sessionID = carrier.SessionID
	}
}
