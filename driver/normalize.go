package driver

import (
	"strings"

	"github.com/codedesk/agentlink/event"
	"github.com/codedesk/agentlink/protocol"
)

// streamNormalizer converts streaming-transport messages into canonical
// events. It is stateful within one turn: it accumulates the cumulative
// text, tracks which tool uses were already reported during streaming,
// and snapshots per-call token counts from call boundaries. The terminal
// message's cumulative usage is deliberately ignored for context-window
// accounting; it double-counts across multi-call turns.
type streamNormalizer struct {
	requestID string
	text      strings.Builder
	thinking  strings.Builder
	seenTools map[string]struct{}
	usage     event.ContextUsage
}

func newStreamNormalizer(requestID string) *streamNormalizer {
	return &streamNormalizer{
		requestID: requestID,
		seenTools: make(map[string]struct{}),
	}
}

// Normalize maps one wire message to zero or more canonical events.
// Unrecognized message kinds map to the catch-all and never fail.
func (n *streamNormalizer) Normalize(msg protocol.Message) []event.Event {
	switch m := msg.(type) {
	case protocol.SystemMessage:
		return n.normalizeSystem(m)

	case protocol.AuthStatusMessage:
		if m.Expired() {
			return []event.Event{event.AuthExpired{Message: m.Message}}
		}
		return nil

	case protocol.StreamEvent:
		return n.normalizeStream(m)

	case protocol.AssistantMessage:
		return n.normalizeAssistant(m)

	case protocol.UserMessage:
		return n.normalizeUser(m)

	case protocol.ResultMessage:
		return n.normalizeResult(m)

	case protocol.ControlRequest, protocol.ControlResponse:
		// Control traffic is correlated by the client, not normalized.
		return nil

	case protocol.UnknownMessage:
		return []event.Event{event.Unknown{RawType: string(m.Type)}}

	default:
		return []event.Event{event.Unknown{}}
	}
}

func (n *streamNormalizer) normalizeSystem(m protocol.SystemMessage) []event.Event {
	switch m.Subtype {
	case protocol.SystemSubtypeInit:
		return []event.Event{
			event.SessionInfo{
				SessionID:      m.SessionID,
				Model:          m.Model,
				Account:        m.APIKeySource,
				PermissionMode: m.PermissionMode,
				Tools:          m.Tools,
				Agents:         m.Agents,
			},
			event.Commands{Names: m.SlashCommands},
		}

	case protocol.SystemSubtypeCompactBoundary:
		trigger := ""
		if m.CompactMetadata != nil {
			trigger = m.CompactMetadata.Trigger
		}
		return []event.Event{event.Compacted{RequestID: n.requestID, Trigger: trigger}}

	case protocol.SystemSubtypeTaskStarted:
		return []event.Event{event.SubagentStarted{
			RequestID:   n.requestID,
			TaskID:      m.TaskID,
			ToolUseID:   m.ToolUseID,
			Description: m.Description,
		}}

	case protocol.SystemSubtypeTaskNotification:
		return []event.Event{event.SubagentDone{
			RequestID: n.requestID,
			TaskID:    m.TaskID,
			Outcome:   m.Status,
		}}

	default:
		if hint, ok := protocol.ParseLimitHint(m.Message); ok {
			return []event.Event{event.LimitHint{
				RequestID:   n.requestID,
				Message:     hint.Message,
				UsedPercent: hint.UsedPercent,
				ResetsAt:    hint.ResetsAt,
			}}
		}
		return []event.Event{event.Unknown{RawType: "system:" + m.Subtype}}
	}
}

func (n *streamNormalizer) normalizeStream(m protocol.StreamEvent) []event.Event {
	data, err := protocol.ParseStreamEvent(m.Event)
	if err != nil || data == nil {
		return []event.Event{event.Unknown{RawType: string(protocol.MessageTypeStreamEvent)}}
	}

	switch e := data.(type) {
	case protocol.MessageStartEvent:
		// A new model call. Its usage snapshot is the per-call count the
		// context-window percent is computed from.
		n.usage.InputTokens = e.Message.Usage.InputTokens
		n.usage.CacheReadTokens = e.Message.Usage.CacheReadInputTokens
		n.usage.CacheCreationTokens = e.Message.Usage.CacheCreationInputTokens
		n.usage.OutputTokens = 0
		if e.Message.Usage.ContextWindow > 0 {
			n.usage.ContextWindow = e.Message.Usage.ContextWindow
		}
		return []event.Event{event.Status{RequestID: n.requestID, Usage: n.usage}}

	case protocol.ContentBlockStartEvent:
		block, err := e.ParsedBlock()
		if err != nil || block == nil {
			return nil
		}
		if tool, ok := block.(protocol.ToolUseBlock); ok {
			n.seenTools[tool.ID] = struct{}{}
			return []event.Event{event.ToolUse{
				RequestID:    n.requestID,
				ToolUseID:    tool.ID,
				Name:         tool.Name,
				Input:        tool.Input,
				ParentTaskID: derefString(m.ParentToolUseID),
			}}
		}
		return nil

	case protocol.ContentBlockDeltaEvent:
		delta, err := e.ParsedDelta()
		if err != nil || delta == nil {
			return nil
		}
		switch d := delta.(type) {
		case protocol.TextDelta:
			n.text.WriteString(d.Text)
			return []event.Event{event.Delta{
				RequestID: n.requestID,
				Text:      d.Text,
				FullText:  n.text.String(),
			}}
		case protocol.ThinkingDelta:
			n.thinking.WriteString(d.Thinking)
			return []event.Event{event.ThinkingDelta{
				RequestID: n.requestID,
				Text:      d.Thinking,
				FullText:  n.thinking.String(),
			}}
		default:
			return nil
		}

	case protocol.MessageDeltaEvent:
		n.usage.OutputTokens = e.Usage.OutputTokens
		return []event.Event{event.Status{RequestID: n.requestID, Usage: n.usage}}

	case protocol.ContentBlockStopEvent, protocol.MessageStopEvent:
		return nil

	default:
		return []event.Event{event.Unknown{RawType: string(protocol.MessageTypeStreamEvent)}}
	}
}

// normalizeAssistant covers content that never went through streaming,
// such as complete messages after a reconnect. Text already emitted as
// deltas is not emitted again.
func (n *streamNormalizer) normalizeAssistant(m protocol.AssistantMessage) []event.Event {
	blocks, ok := m.Message.Content.AsBlocks()
	if !ok {
		return nil
	}

	var events []event.Event
	for _, block := range blocks {
		switch b := block.(type) {
		case protocol.TextBlock:
			if len(b.Text) > n.text.Len() {
				tail := b.Text[n.text.Len():]
				n.text.WriteString(tail)
				events = append(events, event.Delta{
					RequestID: n.requestID,
					Text:      tail,
					FullText:  n.text.String(),
				})
			}
		case protocol.ToolUseBlock:
			if _, seen := n.seenTools[b.ID]; seen {
				continue
			}
			n.seenTools[b.ID] = struct{}{}
			events = append(events, event.ToolUse{
				RequestID:    n.requestID,
				ToolUseID:    b.ID,
				Name:         b.Name,
				Input:        b.Input,
				ParentTaskID: derefString(m.ParentToolUseID),
			})
		}
	}
	return events
}

func (n *streamNormalizer) normalizeUser(m protocol.UserMessage) []event.Event {
	blocks, ok := m.Message.Content.AsBlocks()
	if !ok {
		return nil
	}

	var events []event.Event
	for _, block := range blocks {
		if result, ok := block.(protocol.ToolResultBlock); ok {
			isError := false
			if result.IsError != nil {
				isError = *result.IsError
			}
			events = append(events, event.ToolResult{
				RequestID: n.requestID,
				ToolUseID: result.ToolUseID,
				Content:   result.Content,
				IsError:   isError,
			})
		}
	}
	return events
}

func (n *streamNormalizer) normalizeResult(m protocol.ResultMessage) []event.Event {
	var events []event.Event
	for _, denial := range m.PermissionDenials {
		events = append(events, event.PermissionDenied{
			RequestID: n.requestID,
			ToolName:  denial.ToolName,
		})
	}

	if m.IsError {
		return append(events, event.Failed{
			RequestID:          n.requestID,
			SessionID:          m.SessionID,
			Message:            m.Result,
			RecoverableSession: protocol.IsRecoverableSessionError(m.Result),
		})
	}

	fullText := n.text.String()
	if fullText == "" {
		fullText = m.Result
	}

	return append(events, event.Done{
		RequestID:  n.requestID,
		SessionID:  m.SessionID,
		FullText:   fullText,
		CostUSD:    m.TotalCostUSD,
		DurationMs: m.DurationMs,
		Usage:      n.usage,
	})
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
