// Package state holds the UI-facing session model and the pure reducer
// that folds canonical events into it.
//
// A Session is a value. Reduce never mutates its input; it returns a new
// Session with copy-on-write slices and maps, so a UI layer can hold the
// previous value for diffing and replaying an event sequence is
// deterministic.
package state

import (
	"time"

	"github.com/codedesk/agentlink/event"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusDone             Status = "done"
	StatusError            Status = "error"
)

// ToolStatus is the lifecycle state of one tool invocation.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// SubagentStatus is the lifecycle state of a delegated sub-task.
type SubagentStatus string

const (
	SubagentRunning    SubagentStatus = "running"
	SubagentCompleted  SubagentStatus = "completed"
	SubagentFailed     SubagentStatus = "failed"
	SubagentStopped    SubagentStatus = "stopped"
	SubagentBackground SubagentStatus = "background"
)

// ToolTimelineItem is one tool invocation within the current turn, keyed
// by the tool-use id the agent assigned.
type ToolTimelineItem struct {
	ToolUseID     string
	Name          string
	InputSummary  string
	ResultSummary string
	Status        ToolStatus
	// RawInput is retained only for file-mutation tools, to support diff
	// rendering.
	RawInput   map[string]interface{}
	StartedAt  time.Time
	FinishedAt time.Time
	// Synthesized marks items created from a result that arrived before
	// its matching tool-use (reconnect races). The later tool-use event
	// backfills name and input.
	Synthesized bool
}

// Subagent is a delegated sub-task, tracked separately from generic tool
// calls but frequently created alongside a "Task" timeline item.
type Subagent struct {
	TaskID      string
	ToolUseID   string
	Description string
	Status      SubagentStatus
}

// ApprovalRequest is the pending human sign-off gate. At most one
// approval or question exists at a time.
type ApprovalRequest struct {
	ApprovalID string
	ToolName   string
	Input      map[string]interface{}
}

// PendingQuestion is a multi-choice question awaiting the user.
type PendingQuestion struct {
	ApprovalID string
	Questions  []event.Question
}

// ContentBlockKind tags a ContentBlock variant.
type ContentBlockKind string

const (
	BlockText ContentBlockKind = "text"
	BlockTool ContentBlockKind = "tool"
)

// ContentBlock interleaves streamed prose with tool calls in display
// order. Text blocks are snapshotted whenever a tool call interrupts the
// stream; the remainder is frozen when the turn ends.
type ContentBlock struct {
	Kind      ContentBlockKind
	Text      string
	ToolUseID string
}

// Session is one logical multi-turn conversation bound to a UI thread.
type Session struct {
	ID string
	// ExternalSessionID is the opaque correlation id assigned by the
	// agent process; empty until the first message carrying it arrives.
	// Cleared when a turn fails with a recoverable session error so the
	// next turn starts fresh.
	ExternalSessionID string
	Model             string
	EffortLevel       string
	WorkspaceRoots    []string

	Status           Status
	CurrentRequestID string
	TurnStartedAt    time.Time

	// RecoveryCheckpoint is an opaque marker the embedding layer may set
	// after a turn starts, for example a version-control head, to compute
	// what the turn changed. The reducer clears it at each turn start and
	// otherwise carries it untouched.
	RecoveryCheckpoint string

	// Current turn accumulation.
	CurrentText     string
	CurrentThinking string
	ToolTimeline    []ToolTimelineItem
	ContentBlocks   []ContentBlock
	Subagents       []Subagent

	PendingApproval *ApprovalRequest
	PendingQuestion *PendingQuestion

	PermissionMode    string
	PermissionDenials map[string]struct{}
	SlashCommands     []string
	AuthExpired       bool
	LastLimitHint     *event.LimitHint
	LastCompaction    string

	AccumulatedCostUSD float64
	ContextUsage       event.ContextUsage

	// pendingBlockText is prose streamed since the last content block
	// snapshot. It becomes a text block when a tool call interrupts the
	// stream or the turn ends.
	pendingBlockText string
}

// New returns an idle session for the given UI thread.
func New(id, model, effort string, roots []string) Session {
	return Session{
		ID:             id,
		Model:          model,
		EffortLevel:    effort,
		WorkspaceRoots: append([]string(nil), roots...),
		Status:         StatusIdle,
	}
}

// LimitHint mirrors the scraped rate-limit warning for UI display.
type LimitHint = event.LimitHint

// FindTool returns the timeline item with the given tool-use id, or nil.
func (s *Session) FindTool(toolUseID string) *ToolTimelineItem {
	for i := range s.ToolTimeline {
		if s.ToolTimeline[i].ToolUseID == toolUseID {
			return &s.ToolTimeline[i]
		}
	}
	return nil
}

// FindSubagent returns the subagent with the given task id, or nil.
func (s *Session) FindSubagent(taskID string) *Subagent {
	for i := range s.Subagents {
		if s.Subagents[i].TaskID == taskID {
			return &s.Subagents[i]
		}
	}
	return nil
}

// cloneForWrite returns a copy of s whose mutable collections are safe to
// modify without touching the original.
func (s Session) cloneForWrite() Session {
	out := s
	out.ToolTimeline = append([]ToolTimelineItem(nil), s.ToolTimeline...)
	out.ContentBlocks = append([]ContentBlock(nil), s.ContentBlocks...)
	out.Subagents = append([]Subagent(nil), s.Subagents...)
	if s.PermissionDenials != nil {
		out.PermissionDenials = make(map[string]struct{}, len(s.PermissionDenials))
		for k := range s.PermissionDenials {
			out.PermissionDenials[k] = struct{}{}
		}
	}
	return out
}
