package event

// Kind identifies the concrete variant of an Event.
type Kind int

const (
	// KindUnknown is the catch-all for unrecognized upstream message kinds.
	// Reducers skip it.
	KindUnknown Kind = iota

	// Session family, not tied to a turn.
	KindSessionInfo
	KindAuthExpired
	KindCommands

	// Run family, tagged with the originating request id.
	KindStarted
	KindDelta
	KindThinkingDelta
	KindToolUse
	KindToolResult
	KindApprovalRequest
	KindAskUser
	KindSubagentStarted
	KindSubagentDone
	KindStatus
	KindLimitHint
	KindCompacted
	KindPermissionDenied
	KindDone
	KindFailed
	KindAborted
)

// Event is the closed union of everything the driver can emit.
type Event interface {
	EventKind() Kind
}

// Unknown wraps an upstream message kind the adapters do not handle.
type Unknown struct {
	RawType string
}

func (Unknown) EventKind() Kind { return KindUnknown }

// SessionInfo reports agent installation metadata from the init handshake.
type SessionInfo struct {
	SessionID      string
	Model          string
	Account        string
	PermissionMode string
	Tools          []string
	Agents         []string
}

func (SessionInfo) EventKind() Kind { return KindSessionInfo }

// AuthExpired reports that the agent's credentials need refreshing.
type AuthExpired struct {
	Message string
}

func (AuthExpired) EventKind() Kind { return KindAuthExpired }

// Commands carries the slash-command catalogue advertised by the agent.
type Commands struct {
	Names []string
}

func (Commands) EventKind() Kind { return KindCommands }

// Started marks the beginning of a turn.
type Started struct {
	RequestID string
	SessionID string
}

func (Started) EventKind() Kind { return KindStarted }

// Delta carries an incremental chunk of assistant text together with the
// cumulative text of the turn so far.
type Delta struct {
	RequestID string
	Text      string
	FullText  string
}

func (Delta) EventKind() Kind { return KindDelta }

// ThinkingDelta carries incremental reasoning content.
type ThinkingDelta struct {
	RequestID string
	Text      string
	FullText  string
}

func (ThinkingDelta) EventKind() Kind { return KindThinkingDelta }

// ToolUse reports that the agent requested a tool invocation.
type ToolUse struct {
	RequestID string
	ToolUseID string
	Name      string
	Input     map[string]interface{}
	// ParentTaskID is set when the invocation happened inside a subagent.
	ParentTaskID string
}

func (ToolUse) EventKind() Kind { return KindToolUse }

// ToolResult reports the outcome of a tool invocation.
type ToolResult struct {
	RequestID string
	ToolUseID string
	Content   interface{}
	IsError   bool
}

func (ToolResult) EventKind() Kind { return KindToolResult }

// ApprovalRequest asks the UI to allow or deny a tool invocation. The turn
// is suspended at tool-call granularity until Resolve is called or the
// gate times out.
type ApprovalRequest struct {
	RequestID  string
	ApprovalID string
	ToolName   string
	Input      map[string]interface{}
}

func (ApprovalRequest) EventKind() Kind { return KindApprovalRequest }

// AskUser surfaces a multi-choice question the agent wants answered.
type AskUser struct {
	RequestID  string
	ApprovalID string
	Questions  []Question
}

func (AskUser) EventKind() Kind { return KindAskUser }

// Question is one entry of an AskUser event.
type Question struct {
	Header   string
	Text     string
	Options  []string
	MultiSel bool
}

// SubagentStarted reports a delegated sub-task beginning.
type SubagentStarted struct {
	RequestID   string
	TaskID      string
	ToolUseID   string
	Description string
}

func (SubagentStarted) EventKind() Kind { return KindSubagentStarted }

// SubagentDone reports a delegated sub-task finishing.
type SubagentDone struct {
	RequestID string
	TaskID    string
	// Outcome is one of "completed", "failed", "stopped", "background".
	Outcome string
}

func (SubagentDone) EventKind() Kind { return KindSubagentDone }

// Status reports the current permission mode and context-window usage.
type Status struct {
	RequestID      string
	PermissionMode string
	Usage          ContextUsage
}

func (Status) EventKind() Kind { return KindStatus }

// LimitHint carries a rate-limit warning scraped from free-text system
// messages.
type LimitHint struct {
	RequestID   string
	Message     string
	UsedPercent int
	// ResetsAt is the raw reset description when the message carried one.
	ResetsAt string
}

func (LimitHint) EventKind() Kind { return KindLimitHint }

// Compacted reports that the agent summarized its context window.
type Compacted struct {
	RequestID string
	Trigger   string
}

func (Compacted) EventKind() Kind { return KindCompacted }

// PermissionDenied reports a tool the agent was not allowed to run.
type PermissionDenied struct {
	RequestID string
	ToolName  string
}

func (PermissionDenied) EventKind() Kind { return KindPermissionDenied }

// Done is the successful terminal event of a turn.
type Done struct {
	RequestID  string
	SessionID  string
	FullText   string
	CostUSD    float64
	DurationMs int64
	Usage      ContextUsage
}

func (Done) EventKind() Kind { return KindDone }

// Failed is the error terminal event of a turn. Exactly one of Done,
// Failed or Aborted ends every turn.
type Failed struct {
	RequestID string
	SessionID string
	Message   string
	// SpawnFailure marks executable-missing errors, which are fatal and
	// carry an actionable install hint in Message.
	SpawnFailure bool
	// RecoverableSession marks invalid/expired-session errors. The reducer
	// clears the stored external session id so the next turn starts fresh.
	RecoverableSession bool
}

func (Failed) EventKind() Kind { return KindFailed }

// Aborted is the user-cancelled terminal event of a turn. It takes
// precedence over Done and Failed when they race.
type Aborted struct {
	RequestID string
}

func (Aborted) EventKind() Kind { return KindAborted }
