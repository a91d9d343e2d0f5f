// Package protocol implements the wire protocol spoken by the agent CLI:
// typed structs for the newline-delimited JSON streaming transport, a
// feed-based line decoder, and the best-effort output parser used by the
// one-shot transport.
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates between message kinds.
type MessageType string

const (
	MessageTypeSystem          MessageType = "system"
	MessageTypeAssistant       MessageType = "assistant"
	MessageTypeUser            MessageType = "user"
	MessageTypeResult          MessageType = "result"
	MessageTypeStreamEvent     MessageType = "stream_event"
	MessageTypeAuthStatus      MessageType = "auth_status"
	MessageTypeControlRequest  MessageType = "control_request"
	MessageTypeControlResponse MessageType = "control_response"
)

// System message subtypes the driver understands. Anything else surfaces
// as free-text system chatter.
const (
	SystemSubtypeInit             = "init"
	SystemSubtypeCompactBoundary  = "compact_boundary"
	SystemSubtypeTaskStarted      = "task_started"
	SystemSubtypeTaskNotification = "task_notification"
)

// Message is the interface for all protocol messages.
type Message interface {
	MsgType() MessageType
}

// SystemMessage represents session initialization and system events.
type SystemMessage struct {
	Type           MessageType `json:"type"`
	Subtype        string      `json:"subtype"`
	SessionID      string      `json:"session_id"`
	Model          string      `json:"model,omitempty"`
	CWD            string      `json:"cwd,omitempty"`
	PermissionMode string      `json:"permissionMode,omitempty"`
	APIKeySource   string      `json:"apiKeySource,omitempty"`
	Tools          []string    `json:"tools,omitempty"`
	Agents         []string    `json:"agents,omitempty"`
	SlashCommands  []string    `json:"slash_commands,omitempty"`

	// task_started / task_notification fields.
	TaskID      string `json:"task_id,omitempty"`
	ToolUseID   string `json:"tool_use_id,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`

	// compact_boundary fields.
	CompactMetadata *CompactMetadata `json:"compact_metadata,omitempty"`

	// Free-text chatter. Rate-limit warnings ride here.
	Message string `json:"message,omitempty"`
}

// MsgType returns the message type.
func (m SystemMessage) MsgType() MessageType { return MessageTypeSystem }

// CompactMetadata describes a context summarization boundary.
type CompactMetadata struct {
	Trigger            string `json:"trigger,omitempty"`
	PreCompactionUsage int    `json:"pre_tokens,omitempty"`
}

// AuthStatusMessage reports credential state changes.
type AuthStatusMessage struct {
	Type    MessageType `json:"type"`
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
}

// MsgType returns the message type.
func (m AuthStatusMessage) MsgType() MessageType { return MessageTypeAuthStatus }

// Expired reports whether the credentials need refreshing.
func (m AuthStatusMessage) Expired() bool {
	return m.Status == "expired" || m.Status == "unauthenticated"
}

// Usage tracks per-call token counts.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	ContextWindow            int `json:"context_window,omitempty"`
}

// FlexibleContent can be either a string or an array of content blocks.
type FlexibleContent struct {
	raw json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (fc *FlexibleContent) UnmarshalJSON(data []byte) error {
	fc.raw = data
	return nil
}

// MarshalJSON implements json.Marshaler.
func (fc FlexibleContent) MarshalJSON() ([]byte, error) {
	if fc.raw == nil {
		return []byte("null"), nil
	}
	return fc.raw, nil
}

// IsString returns true if the content is a string.
func (fc FlexibleContent) IsString() bool {
	return len(fc.raw) > 0 && fc.raw[0] == '"'
}

// AsString returns the content as a string (if it is one).
func (fc FlexibleContent) AsString() (string, bool) {
	if !fc.IsString() {
		return "", false
	}
	var s string
	if err := json.Unmarshal(fc.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// AsBlocks returns the content as content blocks (if it is an array).
func (fc FlexibleContent) AsBlocks() (ContentBlocks, bool) {
	if fc.IsString() || len(fc.raw) == 0 {
		return nil, false
	}
	var blocks ContentBlocks
	if err := json.Unmarshal(fc.raw, &blocks); err != nil {
		return nil, false
	}
	return blocks, true
}

// MessageContent is the inner content of assistant/user messages.
type MessageContent struct {
	ID         string          `json:"id,omitempty"`
	Model      string          `json:"model,omitempty"`
	Role       string          `json:"role"`
	Content    FlexibleContent `json:"content"`
	StopReason *string         `json:"stop_reason"`
	Usage      Usage           `json:"usage,omitempty"`
}

// AssistantMessage is a complete message from the agent.
type AssistantMessage struct {
	Type            MessageType    `json:"type"`
	SessionID       string         `json:"session_id"`
	ParentToolUseID *string        `json:"parent_tool_use_id"`
	Message         MessageContent `json:"message"`
}

// MsgType returns the message type.
func (m AssistantMessage) MsgType() MessageType { return MessageTypeAssistant }

// UserMessage represents tool results echoed back by the agent.
type UserMessage struct {
	Type            MessageType    `json:"type"`
	SessionID       string         `json:"session_id"`
	ParentToolUseID *string        `json:"parent_tool_use_id"`
	Message         MessageContent `json:"message"`
}

// MsgType returns the message type.
func (m UserMessage) MsgType() MessageType { return MessageTypeUser }

// ModelUsage tracks usage per model on the result message.
type ModelUsage struct {
	InputTokens          int     `json:"inputTokens"`
	OutputTokens         int     `json:"outputTokens"`
	CacheReadInputTokens int     `json:"cacheReadInputTokens"`
	CostUSD              float64 `json:"costUSD"`
	ContextWindow        int     `json:"contextWindow,omitempty"`
}

// ResultMessage contains turn completion metrics.
//
// The Usage field here is cumulative across every model call of the turn.
// Context-window accounting must not use it; the per-call counts arrive on
// the last call boundary inside the turn.
type ResultMessage struct {
	Type              MessageType           `json:"type"`
	Subtype           string                `json:"subtype"`
	SessionID         string                `json:"session_id"`
	Result            string                `json:"result"`
	IsError           bool                  `json:"is_error"`
	NumTurns          int                   `json:"num_turns"`
	DurationMs        int64                 `json:"duration_ms"`
	DurationAPIMs     int64                 `json:"duration_api_ms"`
	TotalCostUSD      float64               `json:"total_cost_usd"`
	Usage             Usage                 `json:"usage"`
	ModelUsage        map[string]ModelUsage `json:"modelUsage,omitempty"`
	PermissionDenials []PermissionDenial    `json:"permission_denials,omitempty"`
}

// MsgType returns the message type.
func (m ResultMessage) MsgType() MessageType { return MessageTypeResult }

// PermissionDenial identifies a tool the agent was not allowed to run.
type PermissionDenial struct {
	ToolName string `json:"tool_name"`
}

// UnknownMessage preserves a syntactically valid line whose type the
// decoder does not recognize. The normalizer maps it to the catch-all
// event so new upstream kinds never crash a consumer.
type UnknownMessage struct {
	Type MessageType
	Raw  json.RawMessage
}

// MsgType returns the message type.
func (m UnknownMessage) MsgType() MessageType { return m.Type }

// UserMessageToSend is the prompt envelope written to the agent's stdin.
type UserMessageToSend struct {
	Type    string                 `json:"type"`
	Message UserMessageToSendInner `json:"message"`
}

// UserMessageToSendInner is the inner part of messages we send.
type UserMessageToSendInner struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// NewUserTextMessage constructs a UserMessageToSend with a plain text string.
func NewUserTextMessage(text string) UserMessageToSend {
	return UserMessageToSend{
		Type: "user",
		Message: UserMessageToSendInner{
			Role:    "user",
			Content: text,
		},
	}
}

// Marshal serializes the message to a JSON line ready to write to the agent.
func (m UserMessageToSend) Marshal() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal UserMessageToSend: %w", err)
	}
	return b, nil
}

// ParseMessage parses one JSON line into a typed message. Lines that are
// not valid JSON return an error; valid lines of unrecognized type return
// an UnknownMessage.
func ParseMessage(line []byte) (Message, error) {
	var base struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(line, &base); err != nil {
		return nil, fmt.Errorf("parse message type: %w", err)
	}

	switch base.Type {
	case MessageTypeSystem:
		var msg SystemMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parse system message: %w", err)
		}
		return msg, nil
	case MessageTypeStreamEvent:
		var msg StreamEvent
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parse stream event: %w", err)
		}
		return msg, nil
	case MessageTypeAssistant:
		var msg AssistantMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parse assistant message: %w", err)
		}
		return msg, nil
	case MessageTypeUser:
		var msg UserMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parse user message: %w", err)
		}
		return msg, nil
	case MessageTypeResult:
		var msg ResultMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parse result message: %w", err)
		}
		return msg, nil
	case MessageTypeAuthStatus:
		var msg AuthStatusMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parse auth status message: %w", err)
		}
		return msg, nil
	case MessageTypeControlRequest:
		var msg ControlRequest
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parse control request: %w", err)
		}
		return msg, nil
	case MessageTypeControlResponse:
		var msg ControlResponse
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parse control response: %w", err)
		}
		return msg, nil
	default:
		return UnknownMessage{Type: base.Type, Raw: append(json.RawMessage(nil), line...)}, nil
	}
}
