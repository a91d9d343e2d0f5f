package driver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/codedesk/agentlink/event"
	"github.com/codedesk/agentlink/protocol"
)

// runOneShotTurn runs a turn over the one-shot transport. The transport
// produces no incremental events, so a synthetic delta+done pair is
// emitted from the final document. A recoverable session error resets the
// session and reruns the invocation once, same as the streaming path.
func (c *Client) runOneShotTurn(ctx context.Context, requestID, prompt string) {
	for {
		if !c.oneShotAttempt(ctx, requestID, prompt) {
			return
		}
		slog.Info("agent session expired, retrying with a fresh session", "conversation", c.id)
	}
}

// oneShotAttempt runs one blocking CLI invocation. It reports true when
// the failure was a recoverable session error and the turn's single retry
// is still available; any other outcome ends the turn.
func (c *Client) oneShotAttempt(ctx context.Context, requestID, prompt string) bool {
	c.mu.Lock()
	cfg := c.cfg
	if c.externalSessionID != "" {
		cfg.Resume = c.externalSessionID
	}
	c.mu.Unlock()

	pm := newProcessManager(cfg)
	if err := pm.Start(ctx, BuildOneShotArgs(cfg, prompt)); err != nil {
		c.finishOneShot(event.Failed{
			RequestID:    requestID,
			Message:      err.Error(),
			SpawnFailure: isSpawnError(err),
		})
		return false
	}

	c.mu.Lock()
	c.process = pm
	c.mu.Unlock()

	var output []byte
	buf := make([]byte, 4096)
	stdout := pm.Stdout()
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			output = append(output, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	exitCode := pm.Wait()

	c.mu.Lock()
	c.process = nil
	aborted := c.aborted
	c.mu.Unlock()

	if aborted {
		// Abort already emitted the terminal event; the output is dropped.
		return false
	}

	if exitCode != 0 {
		combined := append(output, pm.StderrTail()...)
		msg := protocol.ExtractErrorMessage(combined, exitCode)
		recoverable := protocol.IsRecoverableSessionError(msg)
		if recoverable && c.beginRetry() {
			return true
		}
		c.finishOneShot(event.Failed{
			RequestID:          requestID,
			Message:            msg,
			RecoverableSession: recoverable,
		})
		return false
	}

	c.captureOneShotSessionID(output)

	text := protocol.ExtractResultText(output)
	if text != "" {
		c.emit(event.Delta{RequestID: requestID, Text: text, FullText: text})
	}
	c.finishOneShot(event.Done{
		RequestID: requestID,
		FullText:  text,
		CostUSD:   oneShotCost(output),
	})
	return false
}

func (c *Client) finishOneShot(terminal event.Event) {
	if c.closeTurn() {
		c.emit(terminal)
	}
}

// captureOneShotSessionID records the session id from the result document
// so the next turn can resume it.
func (c *Client) captureOneShotSessionID(output []byte) {
	var doc struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(output, &doc); err != nil || doc.SessionID == "" {
		return
	}
	c.mu.Lock()
	c.externalSessionID = doc.SessionID
	c.mu.Unlock()
}

func oneShotCost(output []byte) float64 {
	var doc struct {
		TotalCostUSD float64 `json:"total_cost_usd"`
	}
	if err := json.Unmarshal(output, &doc); err != nil {
		return 0
	}
	return doc.TotalCostUSD
}
