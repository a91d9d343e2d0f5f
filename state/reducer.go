package state

import (
	"time"

	"github.com/codedesk/agentlink/event"
)

// taskToolName is the tool kind that delegates work to a subagent. A use
// of it creates a Subagent entry in the same reducer step as its timeline
// item.
const taskToolName = "Task"

// Reduce folds one canonical event into the session and returns the new
// session value. The input is never mutated.
func Reduce(s Session, ev event.Event) Session {
	return ReduceAt(s, ev, time.Now())
}

// ReduceAt is Reduce with an explicit clock, for deterministic replay.
func ReduceAt(s Session, ev event.Event, now time.Time) Session {
	switch e := ev.(type) {
	case event.SessionInfo:
		out := s.cloneForWrite()
		if e.SessionID != "" {
			out.ExternalSessionID = e.SessionID
		}
		if e.Model != "" {
			out.Model = e.Model
		}
		if e.PermissionMode != "" {
			out.PermissionMode = e.PermissionMode
		}
		return out

	case event.AuthExpired:
		out := s.cloneForWrite()
		out.AuthExpired = true
		return out

	case event.Commands:
		out := s.cloneForWrite()
		out.SlashCommands = append([]string(nil), e.Names...)
		return out

	case event.Started:
		out := s.cloneForWrite()
		out.Status = StatusRunning
		out.CurrentRequestID = e.RequestID
		out.TurnStartedAt = now
		out.RecoveryCheckpoint = ""
		out.CurrentText = ""
		out.CurrentThinking = ""
		out.pendingBlockText = ""
		out.ToolTimeline = nil
		out.ContentBlocks = nil
		out.PendingApproval = nil
		out.PendingQuestion = nil
		if e.SessionID != "" {
			out.ExternalSessionID = e.SessionID
		}
		return out

	case event.Delta:
		out := s.cloneForWrite()
		out.CurrentText += e.Text
		out.pendingBlockText += e.Text
		return out

	case event.ThinkingDelta:
		out := s.cloneForWrite()
		out.CurrentThinking += e.Text
		return out

	case event.ToolUse:
		return reduceToolUse(s, e, now)

	case event.ToolResult:
		return reduceToolResult(s, e, now)

	case event.ApprovalRequest:
		out := s.cloneForWrite()
		out.Status = StatusAwaitingApproval
		out.PendingApproval = &ApprovalRequest{
			ApprovalID: e.ApprovalID,
			ToolName:   e.ToolName,
			Input:      e.Input,
		}
		out.PendingQuestion = nil
		return out

	case event.AskUser:
		out := s.cloneForWrite()
		out.Status = StatusAwaitingApproval
		out.PendingQuestion = &PendingQuestion{
			ApprovalID: e.ApprovalID,
			Questions:  append([]event.Question(nil), e.Questions...),
		}
		out.PendingApproval = nil
		return out

	case event.SubagentStarted:
		return reduceSubagentStarted(s, e)

	case event.SubagentDone:
		out := s.cloneForWrite()
		if sub := out.FindSubagent(e.TaskID); sub != nil {
			sub.Status = subagentOutcome(e.Outcome)
		}
		return out

	case event.Status:
		out := s.cloneForWrite()
		if e.PermissionMode != "" {
			out.PermissionMode = e.PermissionMode
		}
		if e.Usage != (event.ContextUsage{}) {
			out.ContextUsage = e.Usage
		}
		return out

	case event.LimitHint:
		out := s.cloneForWrite()
		hint := event.LimitHint(e)
		out.LastLimitHint = &hint
		return out

	case event.Compacted:
		out := s.cloneForWrite()
		out.LastCompaction = e.Trigger
		return out

	case event.PermissionDenied:
		out := s.cloneForWrite()
		if out.PermissionDenials == nil {
			out.PermissionDenials = map[string]struct{}{}
		}
		out.PermissionDenials[e.ToolName] = struct{}{}
		return out

	case event.Done:
		out := finishTurn(s, SubagentCompleted)
		out.Status = StatusDone
		out.AccumulatedCostUSD += e.CostUSD
		if e.SessionID != "" {
			out.ExternalSessionID = e.SessionID
		}
		if e.Usage != (event.ContextUsage{}) {
			out.ContextUsage = e.Usage
		}
		return out

	case event.Failed:
		out := finishTurn(s, SubagentFailed)
		out.Status = StatusError
		if e.RecoverableSession {
			// Resumption would keep failing against a dead session, so
			// force the next turn to start a fresh agent session.
			out.ExternalSessionID = ""
		}
		return out

	case event.Aborted:
		out := finishTurn(s, SubagentStopped)
		out.Status = StatusIdle
		return out

	default:
		// event.Unknown and anything unhandled: ignored.
		return s
	}
}

func reduceToolUse(s Session, e event.ToolUse, now time.Time) Session {
	out := s.cloneForWrite()

	if existing := out.FindTool(e.ToolUseID); existing != nil {
		// Backfill a synthesized item created by an early result.
		existing.Name = e.Name
		existing.InputSummary = summarizeInput(e.Name, e.Input)
		if isFileMutationTool(e.Name) {
			existing.RawInput = e.Input
		}
		existing.Synthesized = false
	} else {
		item := ToolTimelineItem{
			ToolUseID:    e.ToolUseID,
			Name:         e.Name,
			InputSummary: summarizeInput(e.Name, e.Input),
			Status:       ToolPending,
			StartedAt:    now,
		}
		if isFileMutationTool(e.Name) {
			item.RawInput = e.Input
		}
		out.ToolTimeline = append(out.ToolTimeline, item)
	}

	// Snapshot prose streamed since the last block, then interleave the
	// tool call in display order.
	if out.pendingBlockText != "" {
		out.ContentBlocks = append(out.ContentBlocks, ContentBlock{Kind: BlockText, Text: out.pendingBlockText})
		out.pendingBlockText = ""
	}
	out.ContentBlocks = append(out.ContentBlocks, ContentBlock{Kind: BlockTool, ToolUseID: e.ToolUseID})

	if e.Name == taskToolName {
		out = reduceTaskSpawn(out, e)
	}
	return out
}

// reduceTaskSpawn records the subagent entry that accompanies a Task tool
// use. The real task id arrives later on a task_started notification; the
// tool-use id serves as the provisional key until then.
func reduceTaskSpawn(out Session, e event.ToolUse) Session {
	for i := range out.Subagents {
		if out.Subagents[i].ToolUseID == e.ToolUseID {
			return out
		}
	}
	desc, _ := e.Input["description"].(string)
	out.Subagents = append(out.Subagents, Subagent{
		TaskID:      e.ToolUseID,
		ToolUseID:   e.ToolUseID,
		Description: desc,
		Status:      SubagentRunning,
	})
	return out
}

func reduceToolResult(s Session, e event.ToolResult, now time.Time) Session {
	out := s.cloneForWrite()

	item := out.FindTool(e.ToolUseID)
	if item == nil {
		// Result before its use (reconnect race): synthesize, to be
		// backfilled if the use event still arrives.
		out.ToolTimeline = append(out.ToolTimeline, ToolTimelineItem{
			ToolUseID:   e.ToolUseID,
			Status:      ToolPending,
			StartedAt:   now,
			Synthesized: true,
		})
		item = &out.ToolTimeline[len(out.ToolTimeline)-1]
	}

	if e.IsError {
		item.Status = ToolError
	} else {
		item.Status = ToolCompleted
	}
	item.ResultSummary = summarizeResult(e.Content)
	item.FinishedAt = now
	return out
}

func reduceSubagentStarted(s Session, e event.SubagentStarted) Session {
	out := s.cloneForWrite()

	// The Task tool use may have registered the subagent under its
	// provisional tool-use id; upgrade that entry in place.
	if e.ToolUseID != "" {
		for i := range out.Subagents {
			if out.Subagents[i].ToolUseID == e.ToolUseID {
				out.Subagents[i].TaskID = e.TaskID
				if e.Description != "" {
					out.Subagents[i].Description = e.Description
				}
				out.Subagents[i].Status = SubagentRunning
				return out
			}
		}
	}
	if sub := out.FindSubagent(e.TaskID); sub != nil {
		sub.Status = SubagentRunning
		if e.Description != "" {
			sub.Description = e.Description
		}
		return out
	}
	out.Subagents = append(out.Subagents, Subagent{
		TaskID:      e.TaskID,
		ToolUseID:   e.ToolUseID,
		Description: e.Description,
		Status:      SubagentRunning,
	})
	return out
}

// finishTurn performs the cleanup shared by every terminal event: freeze
// the trailing text block, close the approval gate, and settle any
// still-running subagents.
func finishTurn(s Session, settle SubagentStatus) Session {
	out := s.cloneForWrite()
	if out.pendingBlockText != "" {
		out.ContentBlocks = append(out.ContentBlocks, ContentBlock{Kind: BlockText, Text: out.pendingBlockText})
		out.pendingBlockText = ""
	}
	out.PendingApproval = nil
	out.PendingQuestion = nil
	for i := range out.Subagents {
		if out.Subagents[i].Status == SubagentRunning {
			out.Subagents[i].Status = settle
		}
	}
	return out
}

func subagentOutcome(outcome string) SubagentStatus {
	switch outcome {
	case "completed", "success":
		return SubagentCompleted
	case "failed", "error":
		return SubagentFailed
	case "stopped", "cancelled":
		return SubagentStopped
	case "background":
		return SubagentBackground
	default:
		return SubagentCompleted
	}
}
