package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/codedesk/agentlink/event"
	"github.com/codedesk/agentlink/protocol"
)

// askUserToolName is the interactive multi-choice question tool. It is
// surfaced to the UI as a question, not a permission prompt.
const askUserToolName = "AskUserQuestion"

// Client drives one conversation against one agent process. The process
// is spawned lazily on the first Send and reused across turns until the
// bind criteria change or it dies.
type Client struct {
	id   string
	cfg  Config
	gate *Gate

	events chan event.Event
	done   chan struct{}

	mu                sync.Mutex
	process           *processManager
	norm              *streamNormalizer
	turnActive        bool
	turnRequestID     string
	turnPrompt        string
	retried           bool
	aborted           bool
	stopped           bool
	externalSessionID string
}

// NewClient creates a client for one conversation. No process is spawned
// until the first Send.
func NewClient(id string, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Client{
		id:     id,
		cfg:    cfg,
		gate:   NewGate(cfg.ApprovalTimeout),
		events: make(chan event.Event, cfg.EventBufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the conversation id this client is bound to.
func (c *Client) ID() string {
	return c.id
}

// Events returns the stream of normalized events.
func (c *Client) Events() <-chan event.Event {
	return c.events
}

// ExternalSessionID returns the agent-assigned session id, empty until
// the agent reports one.
func (c *Client) ExternalSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.externalSessionID
}

// Send starts a new turn with the given prompt and returns its request id.
// One turn at a time; a second Send while a turn is in flight is a
// programming error and returns ErrTurnInFlight.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return "", ErrClientClosed
	}
	if c.turnActive {
		return "", ErrTurnInFlight
	}

	requestID := uuid.NewString()
	c.turnRequestID = requestID
	c.turnPrompt = prompt
	c.retried = false
	c.aborted = false
	c.gate.Reset()

	if c.cfg.OneShot {
		c.turnActive = true
		c.emit(event.Started{RequestID: requestID, SessionID: c.externalSessionID})
		go c.runOneShotTurn(ctx, requestID, prompt)
		return requestID, nil
	}

	if err := c.ensureProcessLocked(ctx); err != nil {
		c.turnRequestID = ""
		if isSpawnError(err) {
			// Spawn failures surface as a terminal event so the turn is
			// accounted for, and as an error for the caller.
			c.emit(event.Started{RequestID: requestID})
			c.emit(event.Failed{
				RequestID:    requestID,
				Message:      err.Error(),
				SpawnFailure: true,
			})
		}
		return "", err
	}

	c.norm = newStreamNormalizer(requestID)
	msg := protocol.NewUserTextMessage(prompt)
	if err := c.process.WriteMessage(msg); err != nil {
		c.turnRequestID = ""
		return "", err
	}

	c.turnActive = true
	c.emit(event.Started{RequestID: requestID, SessionID: c.externalSessionID})
	return requestID, nil
}

// Abort cancels the in-flight turn. Any output the process produces
// afterward is drained but not emitted, and pending approvals are denied.
// Abort wins a race against a simultaneously-arriving terminal message.
func (c *Client) Abort() {
	c.mu.Lock()
	if !c.turnActive || c.aborted {
		c.mu.Unlock()
		return
	}
	c.aborted = true
	c.turnActive = false
	requestID := c.turnRequestID
	process := c.process
	c.mu.Unlock()

	c.gate.Abort()

	if process != nil {
		if c.cfg.OneShot {
			// The blocking invocation has no control channel; a frame
			// written to its stdin would only sit in the pipe buffer.
			_ = process.Interrupt()
		} else {
			req := protocol.NewInterrupt(uuid.NewString())
			if err := process.WriteMessage(req); err != nil {
				// Fall back to signalling the process group.
				_ = process.Interrupt()
			}
		}
	}

	c.emit(event.Aborted{RequestID: requestID})
}

// RespondToApproval delivers the user's decision for a pending approval.
// It reports false if the id is unknown, expired, or already resolved.
func (c *Client) RespondToApproval(approvalID string, d Decision) bool {
	return c.gate.Resolve(approvalID, d)
}

// Stop tears the client down and releases the process.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	process := c.process
	c.process = nil
	c.mu.Unlock()

	c.gate.Abort()
	close(c.done)

	if process != nil {
		process.Stop()
	}

	close(c.events)
}

// matches reports whether this client's binding still satisfies the
// criteria. Workspace roots compare order-insensitively.
func (c *Client) matches(model, effort string, roots []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.aborted {
		// An aborted client is never reused; rebinding replaces it.
		return false
	}
	return c.cfg.Model == model &&
		c.cfg.Effort == effort &&
		normalizeRoots(c.cfg.WorkspaceRoots) == normalizeRoots(roots)
}

// ensureProcessLocked spawns the streaming process if none is live.
// Caller holds c.mu.
func (c *Client) ensureProcessLocked(ctx context.Context) error {
	if c.process != nil {
		return nil
	}

	cfg := c.cfg
	if c.externalSessionID != "" {
		cfg.Resume = c.externalSessionID
	}

	pm := newProcessManager(cfg)
	if err := pm.Start(ctx, BuildArgs(cfg)); err != nil {
		return err
	}

	c.process = pm
	go c.readLoop(pm)
	return nil
}

// readLoop pumps the process's stdout through a decoder and dispatches
// every parsed message. It exits when the process does. Each process gets
// its own decoder so a dying process's partial line cannot bleed into its
// replacement.
func (c *Client) readLoop(pm *processManager) {
	dec := protocol.NewDecoder()
	stdout := pm.Stdout()
	buf := make([]byte, 4096)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, err := stdout.Read(buf)
		if n > 0 {
			for _, msg := range dec.Feed(buf[:n]) {
				c.handleMessage(dec, msg)
			}
		}
		if err != nil {
			c.handleProcessExit(pm)
			return
		}
	}
}

func (c *Client) handleMessage(dec *protocol.Decoder, msg protocol.Message) {
	if id := dec.SessionID(); id != "" {
		c.mu.Lock()
		c.externalSessionID = id
		c.mu.Unlock()
	}

	if ctrl, ok := msg.(protocol.ControlRequest); ok {
		c.handleControlRequest(ctrl)
		return
	}

	c.mu.Lock()
	norm := c.norm
	c.mu.Unlock()

	if norm == nil {
		return
	}

	for _, ev := range norm.Normalize(msg) {
		switch ev.EventKind() {
		case event.KindDone, event.KindFailed, event.KindAborted:
			c.deliverTerminal(ev)
		default:
			c.mu.Lock()
			aborted := c.aborted
			c.mu.Unlock()
			if !aborted {
				c.emit(ev)
			}
		}
	}
}

// deliverTerminal ends the turn with the given terminal event. A
// recoverable session error instead triggers one silent retry with a
// fresh agent session; the prompt is resubmitted once, not indefinitely.
// The turn is closed under the lock, so an abort that already ended it
// wins and exactly one terminal event reaches the channel per turn.
func (c *Client) deliverTerminal(ev event.Event) {
	if failed, ok := ev.(event.Failed); ok && failed.RecoverableSession && c.beginRetry() {
		slog.Info("agent session expired, retrying with a fresh session", "conversation", c.id)
		go c.retryTurn()
		return
	}

	if c.closeTurn() {
		c.emit(ev)
	}
}

// beginRetry claims the turn's single session-reset retry and clears the
// stored external session id so the respawn starts clean.
func (c *Client) beginRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.turnActive || c.aborted || c.retried {
		return false
	}
	c.retried = true
	c.externalSessionID = ""
	return true
}

// closeTurn marks the turn ended. It reports false when the turn was
// already closed, by an abort or an earlier terminal event.
func (c *Client) closeTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	open := c.turnActive && !c.aborted
	c.turnActive = false
	return open
}

// retryTurn respawns the process without a resume id and resubmits the
// current prompt. On any failure the turn ends with a terminal event.
func (c *Client) retryTurn() {
	c.mu.Lock()
	requestID := c.turnRequestID
	prompt := c.turnPrompt
	old := c.process
	c.process = nil
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	c.mu.Lock()
	err := c.ensureProcessLocked(context.Background())
	if err == nil {
		c.norm = newStreamNormalizer(requestID)
		err = c.process.WriteMessage(protocol.NewUserTextMessage(prompt))
	}
	c.mu.Unlock()

	if err != nil && c.closeTurn() {
		c.emit(event.Failed{
			RequestID:    requestID,
			Message:      err.Error(),
			SpawnFailure: isSpawnError(err),
		})
	}
}

// handleProcessExit reports a process death. If a turn was outstanding
// and not aborted, the death is delivered as a terminal Failed with a
// message extracted from the captured stderr; a recoverable session error
// scraped from that output goes through the same single-retry path as one
// reported on the stream.
func (c *Client) handleProcessExit(pm *processManager) {
	exitCode := pm.Wait()

	c.mu.Lock()
	if c.stopped || c.process != pm {
		c.mu.Unlock()
		return
	}
	c.process = nil
	active := c.turnActive
	requestID := c.turnRequestID
	c.mu.Unlock()

	if !active {
		return
	}

	msg := protocol.ExtractErrorMessage(pm.StderrTail(), exitCode)
	c.deliverTerminal(event.Failed{
		RequestID:          requestID,
		Message:            msg,
		RecoverableSession: protocol.IsRecoverableSessionError(msg),
	})
}

// handleControlRequest routes a tool approval through the gate and sends
// the decision back on the control channel. The agent process blocks on
// that specific tool call until the decision arrives; nothing here may
// block the read loop.
func (c *Client) handleControlRequest(msg protocol.ControlRequest) {
	req := protocol.ParseCanUseTool(msg)
	if req == nil {
		return
	}

	approvalID, future := c.gate.Intercept()

	c.mu.Lock()
	requestID := c.turnRequestID
	aborted := c.aborted
	c.mu.Unlock()

	// After an abort the gate denies immediately; the agent still gets its
	// decision below, but the UI never sees a prompt it cannot act on.
	if !aborted {
		if req.ToolName == askUserToolName {
			c.emit(event.AskUser{
				RequestID:  requestID,
				ApprovalID: approvalID,
				Questions:  parseQuestions(req.Input),
			})
		} else {
			c.emit(event.ApprovalRequest{
				RequestID:  requestID,
				ApprovalID: approvalID,
				ToolName:   req.ToolName,
				Input:      req.Input,
			})
		}
	}

	go func() {
		var d Decision
		select {
		case d = <-future:
		case <-c.done:
			return
		}

		c.mu.Lock()
		process := c.process
		c.mu.Unlock()
		if process == nil {
			return
		}

		var resp protocol.ControlResponse
		if d.Allow {
			input := req.Input
			if d.UpdatedInput != nil {
				input = d.UpdatedInput
			}
			resp = protocol.NewPermissionAllow(msg.RequestID, input)
		} else {
			resp = protocol.NewPermissionDeny(msg.RequestID, d.Message, d.Interrupt)
		}

		if err := process.WriteMessage(resp); err != nil {
			slog.Warn("failed to send permission decision", "error", err)
		}
	}()
}

// parseQuestions extracts the question list from the interactive tool's
// input. Malformed entries are skipped.
func parseQuestions(input map[string]interface{}) []event.Question {
	raw, _ := input["questions"].([]interface{})
	questions := make([]event.Question, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		q := event.Question{
			Header:   stringField(m, "header"),
			Text:     stringField(m, "question"),
			MultiSel: boolField(m, "multiSelect"),
		}
		if opts, ok := m["options"].([]interface{}); ok {
			for _, opt := range opts {
				switch o := opt.(type) {
				case string:
					q.Options = append(q.Options, o)
				case map[string]interface{}:
					if label := stringField(o, "label"); label != "" {
						q.Options = append(q.Options, label)
					}
				}
			}
		}
		questions = append(questions, q)
	}
	return questions
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func isSpawnError(err error) bool {
	var spawn *SpawnError
	return errors.As(err, &spawn)
}

// emit delivers an event without ever blocking the read loop. Events are
// dropped if the client is stopping or the consumer has fallen far behind.
func (c *Client) emit(ev event.Event) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.events <- ev:
	case <-c.done:
	default:
		slog.Warn("event channel full, dropping event", "conversation", c.id)
	}
}
